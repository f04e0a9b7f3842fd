package xerrors

// Sentinel error values for the dispatch engine. Components compare
// against these with Is/As; the HTTP facade maps them to status codes.
var (
	// ErrBrokerConnection signals a transport-level failure talking to a
	// broker. Recoverable via broker rotation.
	ErrBrokerConnection = New("broker connection error")

	// ErrNoBrokerReachable signals that none of the configured brokers
	// passed a liveness probe.
	ErrNoBrokerReachable = New("no broker reachable")

	// ErrReadWriteTimeout signals a deadline elapsed on a broker read or
	// publish operation.
	ErrReadWriteTimeout = New("read/write timeout")

	// ErrEndpointUnknown signals no row exists for the requested uid.
	ErrEndpointUnknown = New("endpoint unknown")

	// ErrEndpointInactive signals a known endpoint with no live listener
	// and no working fallback.
	ErrEndpointInactive = New("endpoint inactive")

	// ErrFCMDisabled signals a fallback attempt with no FCM credentials
	// configured.
	ErrFCMDisabled = New("fcm disabled")

	// ErrFCMFailed signals a failed FCM send attempt.
	ErrFCMFailed = New("fcm send failed")

	// ErrUnsupportedContentType signals an inbound request using a
	// content type outside the accepted set.
	ErrUnsupportedContentType = New("unsupported content type")

	// ErrChannelClosed signals a broker channel received the in-band
	// close sentinel.
	ErrChannelClosed = New("channel closed")
)
