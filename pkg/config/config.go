package config

// this holds the resolved configuration values from CLI
var (
	SerialPort     string // serial port of the transmitter, empty means auto-detect
	BaudRate       int    // serial baud rate
	SerialTimeout  string // read timeout for a single serial line
	AckTimeout     string // max duration to wait for the countdown ack token
	TriggerAddr    string // addr of the timing capture listener (UDP)
	TriggerPayload string // payload sent to the timing capture listener
	LogLevel       string // sets the log level (zap log level values)
	LogFormat      string // text vs json
	RosterFile     string // path to the athletes CSV
	TrackFile      string // path to the track topology YAML
	HistoryDir     string // directory of the session history store
	RedSec         int    // seconds between red-on and orange-on
	GreenSec       int    // seconds between red-on and green-on
	OffSec         int    // seconds between red-on and all-off
	DefaultVolume  int    // default device volume, -1 means unset
	LanePattern    string // lane assignment pattern (outside-in, left-to-right)
)
