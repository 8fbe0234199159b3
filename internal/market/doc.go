// Package market is the client for the Central Market GraphQL service.
//
// Client.Query posts a single {query, variables} envelope and returns the
// raw data field. The typed helpers Stores and ProductAt wrap the two
// queries shelfwatch uses: the store directory and a per-store product
// availability lookup.
//
// Failures are split three ways so callers can tell them apart:
//   - *TransportError — the request never completed, or the endpoint
//     answered with a non-2xx status
//   - *UpstreamError — the endpoint answered 2xx but the GraphQL envelope
//     carries an errors list or is missing its data field
//   - *NoProductError — well-formed response with a null product, meaning
//     the service knows nothing about this product/store pair
//
// The client never retries; that is the caller's job.
package market
