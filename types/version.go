// Package types holds values shared by every hoist package.
package types

// Version is the hoist release version. It is reported by the version
// command and sent to storage providers as the client app ID.
const Version = "0.1.0"
