// ABOUTME: Receiver status protocol package
// ABOUTME: Defines status API messages and a WebSocket client for the status feed
// Package protocol implements the JSON protocol spoken by the esprx status API.
//
// Provides the message envelope, the receiver status snapshot and a
// WebSocket client for following a running receiver.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{ServerAddr: "localhost:8080"})
//	err := client.Connect()
//	st := <-client.Statuses
//	err = client.SetGain(2.0)
package protocol
