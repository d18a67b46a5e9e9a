package schema

// fields is the recognized key table for the gateway's environment file.
// Declaration order is canonical: the editor form renders in this order and
// the encoder writes assignments in this order. Every required default must
// pass its own field's validation; every optional default is empty.
var fields = []Field{
	urlField("COT_URL",
		"Destination URL for Cursor-on-Target events",
		"tcp://239.2.3.1:6969", cotURLPattern),
	urlField("FEED_URL",
		"Aircraft feed to poll (aircraft.json endpoint or dump1090 stream)",
		"http://127.0.0.1:8080/data/aircraft.json", feedURLPattern),
	numberField("POLL_INTERVAL",
		"Seconds between feed polls",
		"3", 1, 300, true),
	numberField("COT_STALE",
		"Seconds before an emitted event is considered stale",
		"120", 1, 3600, true),
	stringField("COT_TYPE",
		"CoT event type used when no aircraft category matches",
		"a-n-A-C-F", cotTypePattern, true, false),
	enumField("TAK_PROTO",
		"TAK protocol: 0 legacy XML, 1 protobuf mesh, 2 protobuf stream",
		"0", "0", "1", "2"),
	stringField("CALLSIGN_PREFIX",
		"Prefix prepended to generated callsigns",
		"", callsignPattern, false, true),
	boolField("DEBUG",
		"Enable verbose gateway logging"),
	boolField("INCLUDE_TISB",
		"Include TIS-B tracks in the output"),
	boolField("INCLUDE_ALL_CRAFT",
		"Include aircraft that have no position yet"),
	numberField("ALT_UPPER",
		"Ignore aircraft above this altitude in feet",
		"", -1000, 100000, false),
	numberField("ALT_LOWER",
		"Ignore aircraft below this altitude in feet",
		"", -1000, 100000, false),
	pathField("KNOWN_CRAFT",
		"CSV file of known aircraft callsign and type hints"),
	pathField("PYTAK_TLS_CLIENT_CERT",
		"Client certificate for TLS connections to the TAK server"),
	pathField("PYTAK_TLS_CLIENT_KEY",
		"Client key for TLS connections to the TAK server"),
	boolField("PYTAK_TLS_DONT_VERIFY",
		"Disable TLS certificate verification"),
}
