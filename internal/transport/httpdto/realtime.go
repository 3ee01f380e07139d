package httpdto

// Realtime frame types exchanged over the websocket.
const (
	FrameSendMessage = "send_message"
	FrameMessageAck  = "message_ack"
	FrameNewMessage  = "new_message"
	FramePing        = "ping"
	FramePong        = "pong"
	FrameError       = "error"
)

// ClientFrame is sent by a device over the websocket.
type ClientFrame struct {
	Type           string     `json:"type"`
	RequestID      string     `json:"request_id,omitempty"`
	ConversationID string     `json:"conversation_id,omitempty"`
	SenderDeviceID string     `json:"sender_device_id,omitempty"`
	Envelopes      []Envelope `json:"envelopes,omitempty"`
}

// ServerFrame is sent by the server. Message is set on new_message frames and
// on successful acks.
type ServerFrame struct {
	Type      string   `json:"type"`
	RequestID string   `json:"request_id,omitempty"`
	Success   bool     `json:"success"`
	Message   *Message `json:"message,omitempty"`
	Error     string   `json:"error,omitempty"`
	Code      string   `json:"code,omitempty"`
}

func NewMessageFrame(m Message) ServerFrame {
	return ServerFrame{Type: FrameNewMessage, Success: true, Message: &m}
}

func NewAckFrame(requestID string, m Message) ServerFrame {
	return ServerFrame{Type: FrameMessageAck, RequestID: requestID, Success: true, Message: &m}
}

func NewAckErrorFrame(requestID, err, code string) ServerFrame {
	return ServerFrame{Type: FrameMessageAck, RequestID: requestID, Error: err, Code: code}
}

func NewErrorFrame(err, code string) ServerFrame {
	return ServerFrame{Type: FrameError, Error: err, Code: code}
}
