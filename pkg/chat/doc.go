// Package chat maintains one realtime group-chat channel per event over a
// WebSocket connection.
//
// A Channel holds an in-memory transcript for the lifetime of the
// connection. Sends are fire-and-forget: the message is appended locally
// before the write happens, so the sender sees it immediately. Incoming
// frames are appended as they arrive and forwarded to an optional handler.
//
//	ch := chat.NewChannel("wss://api.example.com", "42", "alice",
//		chat.WithHandler(func(m chat.Message) { render(m) }))
//	if err := ch.Connect(ctx); err != nil {
//		return err
//	}
//	defer ch.Disconnect()
//	ch.Send("hello everyone")
//
// The transcript is not persisted; a reconnect starts from an empty
// history.
package chat
