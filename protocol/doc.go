package protocol

// This package implements parsing and serialising the frames of the gateway
// protocol that aurora sessions speak over a WebSocket.
//
// - `Frame` - One message on the wire, tagged with an opcode.
// - `Message` - The typed view of an inbound frame (Dispatch, Hello, ...).
// - `Dispatch` - A frame carrying one application event and its sequence.
// - `Intent` - A bitmask flag subscribing to one category of events.
//
// === General Syntax
//
// Every frame is a JSON object
//
//   ```
//   {"op": <opcode>, "d": <data>, "s": <sequence>, "t": <event name>}
//   ```
//
// - `op` is always present and must be one of the known opcodes
// - `d` can be any JSON value, including null
// - `s` and `t` are only meaningful on Dispatch (op 0) frames
//
// Frames sent by the client only ever contain `op` and `d`.
//
// === Handshake
//
//  ```
//    < {"op":10,"d":{"heartbeat_interval":41250}}
//    > {"op":2,"d":{"token":"...","intents":513,"properties":{...},"compress":false}}
//    < {"op":0,"s":1,"t":"READY","d":{"session_id":"abc123",...}}
//  ```
//
// === Heartbeats
//
//  ```
//    > {"op":1,"d":<last sequence or null>}
//    < {"op":11}
//  ```
//
// === Resume
//
//  ```
//    > {"op":6,"d":{"token":"...","session_id":"abc123","seq":57}}
//    < <replayed Dispatch frames>
//    < {"op":0,"s":60,"t":"RESUMED","d":{}}
//  ```
//
// === Compression
//
// When a connection is opened with `compress=zlib-stream` the gateway sends a
// single zlib stream for the lifetime of the connection. Each complete message
// ends with a sync flush, the four bytes `00 00 ff ff`. A message may arrive
// split over several WebSocket messages, so blocks are buffered until the
// suffix is seen.
//
