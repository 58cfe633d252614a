package protocol

// HostName is the judge name that denotes the session organizer. There is no
// host flag anywhere in the database; the convention lives entirely at the
// connection level.
const HostName = "host"

// IsHost reports whether a judge name denotes the session host.
func IsHost(judgeName string) bool {
	return judgeName == HostName
}
