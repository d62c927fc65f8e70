package param

var (
	// DebugOn switches on logging for every prefix. Otherwise only the
	// prefixes in LogServices are logged by syslog.Log.
	DebugOn = false

	Environ = "dev"

	// RunId is set by run.New and used to name log streams.
	RunId string

	LogFile string
)

const (
	// Logging

	Logid   = "main:"
	AppName = "TermGraph"

	// CloudWatch Logs upload: events per PutLogEvents call and channel buffer
	CWLogLoadSize = 250
	LogChBufSize  = 1000

	// BatchSize is the number of rows read from a content stream and handed
	// to a single writer.
	BatchSize = 10000

	// TransformBatchSize is the number of transformation groups accumulated
	// before a unit of logic-graph work is dispatched.
	TransformBatchSize = 10240

	// PermitMultiplier * hardware parallelism = size of the write permit pool.
	PermitMultiplier = 2
)

var LogServices = []string{Logid, "loader", "regroup"}
