// Package bot is the Matrix front-end: it syncs with the homeserver,
// turns prefixed messages into commands, answers the privilege resolver's
// membership queries, and delivers replies and admin reports.
//
// # Commands
//
//   - register <username> <email>: runs the registration workflow; only
//     accepted in a direct conversation with the bot
//   - whoami: shows the caller's resolved privilege
//   - help: command summary
//   - selftest: directory health query, only when enabled in config
//
// # Membership states
//
// The weight table is keyed by status strings this package produces from
// room member state and power levels: "administrator" (power level 100+),
// "moderator" (50+), "member", "invited", "knocked", "banned", and "left".
//
// # Error boundary
//
// handleCommand is the single outer boundary the workflow relies on: a
// *workflow.ValidationError becomes a local usage hint, anything else is
// reported once to the admin room and replaced with a generic reply.
package bot
