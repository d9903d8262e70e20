package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeDeadline = 10 * time.Second
	// Proctoring clients may sit quiet between violations; the read
	// deadline only guards against dead connections.
	readDeadline = 5 * time.Minute
)

// Send marshals v as JSON onto the connection under the write deadline.
func Send(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return conn.WriteJSON(v)
}

// SendError sends an error event with the given message.
func SendError(conn *websocket.Conn, msg string) error {
	return Send(conn, ErrorResponse{Event: EventError, Error: msg})
}

// Receive blocks for the next JSON message, up to the read deadline.
func Receive(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	return conn.ReadJSON(v)
}
