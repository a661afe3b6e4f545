// Package youtube wraps the YouTube Data API live-broadcast surface behind a
// small Client interface so scheduling and lifecycle logic stays testable
// without network access.
package youtube
