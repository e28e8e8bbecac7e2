package tracer

// peer types
const (
	Http    = "http"
	GRPC    = "grpc"
	MySQL   = "mysql"
	Redis   = "redis"
	Mongodb = "mongodb"
)

// http fields
const (
	HttpScheme     = "http.scheme"
	HttpMethod     = "http.method"
	HttpHost       = "http.host"
	HttpPath       = "http.path"
	HttpStatusCode = "http.status_code"
)

// db fields
const (
	DbStatement  = "db.statement"
	DbInstance   = "db.instance"
	DbParameters = "db.sql.parameters"
)

const (
	PeerType    = "peer.type"
	PeerAddress = "peer.address"
	PeerService = "peer.service"
)

const (
	ErrorKey  = "error"
	RequestID = "request.id"
)
