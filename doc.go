// Package authflow decides which page a visitor of the event site belongs
// on (sign in, registration or profile) from a credential token, the user
// it identifies and that user's registration.
//
// Resolution pipeline:
//   - The token comes from the location query parameter (default "jwt"),
//     which is stripped from the location once read, or from the Store.
//     Fresh tokens are written back to the Store and evicted when gone.
//   - UserFetcher resolves the token into a User and RegistrationFetcher
//     resolves the User into a Registration. Lookup errors count as absent.
//   - Once all three are loaded the Resolver settles on auth, register or
//     profile and asks the Navigator to move to the matching route. The
//     decision is taken once; Reset starts over.
//
// Concurrency:
//   - Every stage runs on a single goroutine per Resolver. Navigator
//     callbacks and lookup results are queued, so collaborators may notify
//     synchronously. Results from superseded lookups are dropped.
//
// Activity sinks:
//   - ActivitySink receives token, lookup, state and navigation events on a
//     best effort basis (errors are logged).
package authflow
