// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads bldroot configuration.
//
// Configuration is read from a single file named by either the
// BLDROOT_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no automatic discovery. Files ending in
// .json or .jsonc are parsed as JSON with comments and trailing commas
// allowed; anything else is parsed as YAML.
//
// Path fields support ${VAR} and ${VAR:-default} expansion after
// loading. ${BUILD_ROOT} and ${DIST_DIR} refer to the configured build
// root and distribution tree, so dependent paths can be written
// relative to them.
//
// Key exports:
//
//   - [Config] -- Paths, Sandbox, PackageManager, Signing, Host
//   - [Default] -- a complete development configuration
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.Layout] -- the [paths.Layout] a session operates on
package config
