// Package model defines the identity and activity types shared by the
// reporting-system sync engine, the presence mirror and the command
// responder.
//
// A Person row is provisioned outside this process. The engines only ever
// update the two observation columns on it: the latest reporting-system
// activity (ActivityEvent) and the latest chat-network Presence.
package model
