package kafka

// MessageHeaders are the headers stamped on every sighting message so
// consumers can route without decoding the body.
type MessageHeaders struct {
	EventType   string
	ReaderID    string
	RequestID   string
	TraceParent string
}

const (
	headerEventType   = "event_type"
	headerReaderID    = "reader_id"
	headerRequestID   = "request_id"
	headerTraceParent = "traceparent"
)

// ToKafkaHeaders converts MessageHeaders to header key-value pairs, skipping empty values
func (h *MessageHeaders) ToKafkaHeaders() []Header {
	headers := make([]Header, 0, 4)

	if h.EventType != "" {
		headers = append(headers, Header{Key: headerEventType, Value: []byte(h.EventType)})
	}
	if h.ReaderID != "" {
		headers = append(headers, Header{Key: headerReaderID, Value: []byte(h.ReaderID)})
	}
	if h.RequestID != "" {
		headers = append(headers, Header{Key: headerRequestID, Value: []byte(h.RequestID)})
	}
	if h.TraceParent != "" {
		headers = append(headers, Header{Key: headerTraceParent, Value: []byte(h.TraceParent)})
	}

	return headers
}

// Header represents a Kafka message header
type Header struct {
	Key   string
	Value []byte
}

// ExtractHeaders extracts MessageHeaders from Kafka headers
func ExtractHeaders(headers []Header) MessageHeaders {
	var mh MessageHeaders
	for _, h := range headers {
		switch h.Key {
		case headerEventType:
			mh.EventType = string(h.Value)
		case headerReaderID:
			mh.ReaderID = string(h.Value)
		case headerRequestID:
			mh.RequestID = string(h.Value)
		case headerTraceParent:
			mh.TraceParent = string(h.Value)
		}
	}
	return mh
}

// ReceivedMessage is a message read by a Subscriber
type ReceivedMessage struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   MessageHeaders
}
