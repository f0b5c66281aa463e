// Package tokenstore persists the single CRM OAuth2 credential record.
//
// Two backends share one JSON document format:
//   - File: a flat tokens.json written with temp file + rename and 0600 permissions
//   - Keyring: the OS credential store (macOS Keychain, Secret Service, Windows Credential Manager)
//
// The document keeps the historical key "expires_in" but stores the absolute
// expiry instant in Unix seconds, so records written by earlier deployments load unchanged.
package tokenstore
