// Package services holds cross-cutting helpers shared by every component:
// the closed error taxonomy used for failure classification, context
// annotation for correlation fields, and identifier validation.
package services
