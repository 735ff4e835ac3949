// Package relay implements the contact-form relay: it validates a submission,
// composes a notification message and hands it to a MailSender.
//
// The core entry point is Relay.Handle, which takes a serverless-style Event
// and returns a Response without touching net/http. Router adapts it to an
// HTTP endpoint.
package relay
