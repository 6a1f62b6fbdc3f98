// Package events defines the typed event contract between a realtime
// conversation transport and the session core.
//
// Event kinds:
//
//   - ItemCreated (item.created): a conversation item was created, either from
//     locally sent user content or by the remote endpoint. Carries the initial
//     item content.
//   - ItemDelta (item.delta): an append-only fragment (audio, text, transcript
//     or tool call arguments) for an existing item.
//   - ItemCompleted (item.completed): the item reached its terminal state; no
//     further deltas follow.
//   - ConversationInterrupted (conversation.interrupted): the remote endpoint
//     detected the user talking over assistant audio.
//   - Error (error): the transport or the remote endpoint reported an error.
//     Errors are informational; the stream continues.
//   - Unknown (unknown): a remote event the transport does not translate.
//     Consumers ignore it.
//
// Events are delivered in arrival order on a single stream per connection.
package events
