// Package electionregistry implements the election registry inside the
// governance context.
//
// The module owns the registry singleton, election lifecycle (create, close),
// candidate registration, voter authorization and vote casting with a
// reward-owed ledger. Events leave through an outbox relayed by workers, and
// rewards are settled asynchronously against a RewardPayer port.
package electionregistry
