package version

// Version, Commit and Date are set at build time via -ldflags "-X ...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// ServiceName is the name of the binary and metric namespace.
const ServiceName = "poolprobe"

// UserAgent is sent on every management API request.
func UserAgent() string {
	return ServiceName + "/" + Version
}
