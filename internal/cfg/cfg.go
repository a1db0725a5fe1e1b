package cfg

const (
	// Timeline
	DEFAULT_MS_PER_CELL      = 5  // timeline scale. Unit in milliseconds per terminal cell
	DEFAULT_REFRESH_INTERVAL = 30 // render cadence. Unit in milliseconds

	// Recorder
	RECORDER_WARNING_BUFFER = 64 // buffered warnings before new ones are dropped

	// Hub
	HUB_CLIENT_BUFFER_SIZE = 256 // per viewer send/receive queue length

	// Server
	SERVER_CLEAN_INTERVAL    = 60      // Scan for idle session interval. Unit in seconds
	SERVER_CLEAN_THRESHOLD   = 60 * 10 // Threshold to be classified as idle session. Unit in seconds
	SERVER_READ_BUFFER_SIZE  = 1024    // server websocket read buffer size
	SERVER_WRITE_BUFFER_SIZE = 1024    // server websocket write buffer size

	// Viewer
	VIEWER_READ_BUFFER_SIZE  = 1024 // viewer websocket read buffer size
	VIEWER_WRITE_BUFFER_SIZE = 1024 // viewer websocket write buffer size

	SERVER_VERSION = "0.2.1"
)
