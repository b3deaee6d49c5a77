// Package enrichment provides the minimal metadata-service client used to
// derive glossary terms for a production: the localized title in the target
// language and the principal character names.
//
// Responses are strongly typed so the glossary can index them. Options allow
// tests to supply custom HTTP clients without modifying production code.
package enrichment
