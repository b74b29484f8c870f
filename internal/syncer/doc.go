// Package syncer reconciles a client's offline changes with the server copy.
//
// A sync is a single transaction per request:
//
//	lock tenant -> merge each kind (fixed order) -> collect change-set -> commit
//
// Conflicts are settled by last-writer-wins on the modification marker
// (updated_at). The comparison uses the marker the client claims, so a device
// whose clock runs ahead can overwrite a newer server copy. What is stored and
// returned is always the server's own transaction time, which keeps
// watermarks and change-sets on a single clock. On equal markers the server
// copy wins.
package syncer
