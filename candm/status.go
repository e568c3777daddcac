package candm

import "fmt"

// Status is the reply packet's outcome code.
type Status uint16

// Status is the reply status-code taxonomy.
const (
	StSuccess Status = iota
	StFailed
	StUnauthorized
	StInvalid
	StNoSuchSource
	StSourceAlreadyKnown
	StTooManySources
	StNoRTC
	StBadRTCFile
	StInactive
	StBadSubnet
	StAccessAllowed
	StAccessDenied
	StNoHostAccess
	StInvalidAF
	StBadSample
	StBadPacketVersion
	StBadPacketLength
	StNotEnabled
)

var statusNames = [...]string{
	"SUCCESS", "FAILED", "UNAUTHORIZED", "INVALID", "NOSUCHSOURCE",
	"SOURCEALREADYKNOWN", "TOOMANYSOURCES", "NORTC", "BADRTCFILE",
	"INACTIVE", "BADSUBNET", "ACCESSALLOWED", "ACCESSDENIED",
	"NOHOSTACCESS", "INVALIDAF", "BADSAMPLE", "BADPACKETVERSION",
	"BADPACKETLENGTH", "NOTENABLED",
}

func (s Status) String() string {
	if int(s) >= len(statusNames) {
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
	return statusNames[s]
}
