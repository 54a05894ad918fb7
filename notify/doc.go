// Package notify provides otp.Dispatcher implementations.
//
//   - [Router] maps each channel to a [Sender] and reports unsupported
//     channels so the OTP manager can fail before writing a record.
//   - [LogDispatcher] writes redacted dispatch lines through zerolog. It is
//     the development fallback when no transport is configured.
//   - [AMQPDispatcher] publishes notifications as JSON to a RabbitMQ topic
//     exchange for a separate notification service to deliver.
package notify
