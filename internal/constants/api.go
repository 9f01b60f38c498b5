package constants

const (
	APIName = "MDF"

	DefaultConfigPath1 = "/etc/mdf-connect"
	DefaultConfigPath2 = "$HOME/.mdf-connect"
)

const (
	HeaderUserID    = "X-MDF-User-Id"
	HeaderUserEmail = "X-MDF-User-Email"
	HeaderUserName  = "X-MDF-User-Name"
)

// PublicACL makes a submission readable by everyone.
const PublicACL = "public"

const HeaderRequestID = "X-Request-Id"
