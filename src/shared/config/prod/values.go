package prod

// DynamoDB
const (
	DynamoDBRegion = "us-east-2"
)

// Google Cloud Storage
const (
	GOOGLE_STORAGE_HOST = "https://storage.googleapis.com"
)

// MVSep
const (
	MVSEP_API_HOST = "https://mvsep.com"
)

// CRM
const (
	CRM_API_HOST = "https://rest.gohighlevel.com"
)

// Worker
const (
	WorkerMetricsAddr = ":9102"
)
