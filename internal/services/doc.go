// Package services holds cross-cutting helpers shared by pipeline
// components: the error taxonomy used for failure classification and
// context annotation helpers for structured logging.
package services
