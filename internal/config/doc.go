// Package config loads and watches the shelfwatch configuration file.
//
// Top-level types:
//   - Config{Server, Product, Upstream, Stores, Push, Notify} — full tree
//     parsed from YAML
//   - StoreTarget — display label plus the numeric store id; entries without
//     an id are resolved against the store directory at collection time
//   - WebhookConfig — notification target; URL() resolves the webhook URL
//     from the environment variable named in url_env
//
// Load(path) reads the YAML file (path may be empty — the compiled-in
// defaults already describe a working setup), applies defaults, applies the
// SHELFWATCH_HOST / SHELFWATCH_PORT / SHELFWATCH_PRODUCT_URL environment
// overrides, then validates.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It handles the rename→create
// pattern used by atomic-save editors by re-adding the watch after each
// reload.
package config
