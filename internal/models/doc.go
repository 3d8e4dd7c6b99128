// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

/*
Package models defines the data structures exchanged between the LoanDesk
realtime agent, the hub endpoints and the REST API.

Key types:

  - ChatMessage: a message in a loan-request conversation (room)
  - Notification: a status-change or system notification
  - NotificationType: the notification-type enumeration used by the server
  - SendMessageRequest: payload of the send-message REST call
  - APIResponse: envelope used by the local HTTP API

Wire compatibility: the server serializes identities as either senderId or
senderUserId (receiverId / receiverUserId) and timestamps as sentAt or
createdAt, with or without a zone designator. The decoders in this package
accept every variant.
*/
package models
