package cli

import (
	"flag"
	"time"

	"github.com/castkit/uploadd/internal/grouped_flags"
	"github.com/castkit/uploadd/pkg/objstore"
)

var Flags struct {
	HttpHost              string
	HttpPort              string
	HttpSock              string
	Basepath              string
	JwtPublicKeyFile      string
	DatabasePath          string
	PresignTTL            time.Duration
	ListMaxKeys           int
	ExposeMetrics         bool
	MetricsPath           string
	ExposePprof           bool
	PprofPath             string
	PprofBlockProfileRate int
	PprofMutexProfileRate int
	ShowVersion           bool
	VerboseOutput         bool
	LogFormat             string
	NetworkTimeout        time.Duration
	ShutdownTimeout       time.Duration
}

func ParseFlags() {
	fs := grouped_flags.NewFlagGroupSet(flag.ExitOnError)

	fs.AddGroup("Listening options", func(f *flag.FlagSet) {
		f.StringVar(&Flags.HttpHost, "host", "0.0.0.0", "Host to bind HTTP server to")
		f.StringVar(&Flags.HttpPort, "port", "8080", "Port to bind HTTP server to")
		f.StringVar(&Flags.HttpSock, "unix-sock", "", "If set, will listen to a UNIX socket at this location instead of a TCP socket")
		f.StringVar(&Flags.Basepath, "base-path", "/", "Basepath of the HTTP server")
	})

	fs.AddGroup("Authentication options", func(f *flag.FlagSet) {
		f.StringVar(&Flags.JwtPublicKeyFile, "jwt-public-key", "", "Path to the PEM-encoded RSA public key used to verify Bearer tokens (required)")
	})

	fs.AddGroup("Channel database options", func(f *flag.FlagSet) {
		f.StringVar(&Flags.DatabasePath, "database", "./channels.db", "Path to the SQLite database holding channel ownership records")
	})

	fs.AddGroup("Storage options", func(f *flag.FlagSet) {
		f.DurationVar(&Flags.PresignTTL, "presign-ttl", objstore.DefaultPresignTTL, "Lifetime of presigned URLs handed out for part uploads and downloads")
		f.IntVar(&Flags.ListMaxKeys, "list-max-keys", 50, "Maximum number of keys returned by the media listing endpoint")
	})

	fs.AddGroup("Monitoring, profiling, logging options", func(f *flag.FlagSet) {
		f.BoolVar(&Flags.ExposeMetrics, "expose-metrics", true, "Expose metrics about uploadd usage")
		f.StringVar(&Flags.MetricsPath, "metrics-path", "/metrics", "Path under which the metrics endpoint will be accessible")
		f.BoolVar(&Flags.ExposePprof, "expose-pprof", false, "Expose the pprof interface over HTTP for profiling uploadd")
		f.StringVar(&Flags.PprofPath, "pprof-path", "/debug/pprof/", "Path under which the pprof endpoint will be accessible")
		f.IntVar(&Flags.PprofBlockProfileRate, "pprof-block-profile-rate", 0, "Fraction of goroutine blocking events that are reported in the blocking profile")
		f.IntVar(&Flags.PprofMutexProfileRate, "pprof-mutex-profile-rate", 0, "Fraction of mutex contention events that are reported in the mutex profile")
		f.BoolVar(&Flags.ShowVersion, "version", false, "Print uploadd version information")
		f.BoolVar(&Flags.VerboseOutput, "verbose", false, "Enable verbose logging output, including every S3 API call")
		f.StringVar(&Flags.LogFormat, "log-format", "json", "Logging format (json or console)")
	})

	fs.AddGroup("Timeout options", func(f *flag.FlagSet) {
		f.DurationVar(&Flags.NetworkTimeout, "network-timeout", 60*time.Second, "Timeout for reading the request and writing the response. If uploadd does not receive data for this duration, it will consider the connection dead.")
		f.DurationVar(&Flags.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "Timeout for closing connections gracefully during shutdown. After the timeout, uploadd will exit regardless of any open connection.")
	})

	fs.Parse()

	SetupStructuredLogger()
}
