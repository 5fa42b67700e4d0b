// Package dedupe prevents re-delivered sync events from being handled twice.
package dedupe
