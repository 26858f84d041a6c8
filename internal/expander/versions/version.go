// Package versions holds the application version and the version of the session
// management API the expander speaks.
package versions

import (
	"github.com/Masterminds/semver/v3"
)

// Version is the current version of the expander.
const Version = "0.2.0"

// NSMAPIVersion is the Non Session Manager API version announced to the server.
const NSMAPIVersion = "1.2.0"

var nsmAPI = semver.MustParse(NSMAPIVersion)

// NSMAPI returns the major and minor API version sent with the announce request.
func NSMAPI() (major, minor int32) {
	return int32(nsmAPI.Major()), int32(nsmAPI.Minor())
}
