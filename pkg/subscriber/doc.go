// Package subscriber exposes the confirmed-recipient view the newsletter
// core reads at publish time.
//
// The subscription lifecycle itself (sign-up forms, double opt-in
// confirmation) lives outside this module; the core only needs a [Source]
// that answers "who is confirmed right now". [PostgresSource] reads the
// subscriptions relation, [StaticSource] serves fixed addresses for tests
// and development.
package subscriber
