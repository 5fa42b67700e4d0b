// Package workflow implements the self-service registration command.
//
// # Flow
//
// Register runs these steps in order:
//
//  1. Require a direct (private) origin.
//  2. Resolve the caller's privilege; unprivileged callers get a terminal
//     reply, not an error.
//  3. Validate the candidate username and email.
//  4. Short-circuit if the username already exists.
//  5. Short-circuit if the caller's chat identity is already linked to a
//     directory user.
//  6. Create the user with the chat identity attribute pre-populated.
//  7. Attach the user to the group of every trust domain the caller holds a
//     positive weight in.
//
// # Error boundaries
//
// Validation problems surface as *ValidationError and are rendered locally
// as usage hints. Everything else that fails before or during user creation
// propagates unwrapped to the command boundary, which reports it to the
// admin sink once and replies generically. Group attachment runs after the
// user exists, so its failures never abort the workflow: each domain is
// attached independently and failures are aggregated into the outcome's
// report lines. No rollback is attempted; the directory backend is the
// authority on uniqueness, and a creation race simply surfaces as a backend
// rejection for the losing caller.
package workflow
