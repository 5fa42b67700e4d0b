// Package privilege decides what a caller is allowed to do, based on their
// membership across the configured trust-domain rooms.
//
// A command from inside a trust domain resolves against that domain alone.
// A command from a direct conversation scans every configured domain and
// takes the highest weight, keeping the first domain on ties. Membership
// states come from a MembershipSource and are mapped through the configured
// weight table; a weight of zero or less never grants privilege in a direct
// conversation.
package privilege
