package electionregistry_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	electionregistry "electionledger/contexts/governance/election-registry"
	domainerrors "electionledger/contexts/governance/election-registry/domain/errors"
	httptransport "electionledger/contexts/governance/election-registry/transport/http"
)

const (
	owner    = "platform-owner"
	official = "official-1"
)

// newInitializedModule returns a module whose store clock is pinned to the
// returned pointer, initialized with a reward of 10 tokens in base units.
func newInitializedModule(t *testing.T) (electionregistry.Module, *time.Time) {
	t.Helper()
	module := electionregistry.NewInMemoryModule(nil, nil)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	module.Store.SetClock(func() time.Time { return now })

	if _, err := module.Handler.InitializeRegistryHandler(context.Background(), owner, httptransport.InitializeRegistryRequest{
		TokenReward: "10000000000000000000",
	}); err != nil {
		t.Fatalf("initialize registry failed: %v", err)
	}
	return module, &now
}

func createElection(t *testing.T, module electionregistry.Module, name string, duration int64) httptransport.ElectionResponse {
	t.Helper()
	election, err := module.Handler.CreateElectionHandler(context.Background(), official, "", httptransport.CreateElectionRequest{
		Name:            name,
		DurationSeconds: duration,
	})
	if err != nil {
		t.Fatalf("create election failed: %v", err)
	}
	return election
}

func addCandidate(t *testing.T, module electionregistry.Module, electionID int64, name string) httptransport.CandidateResponse {
	t.Helper()
	candidate, err := module.Handler.AddCandidateHandler(context.Background(), official, "", electionID, httptransport.AddCandidateRequest{Name: name})
	if err != nil {
		t.Fatalf("add candidate %s failed: %v", name, err)
	}
	return candidate
}

func authorize(t *testing.T, module electionregistry.Module, electionID int64, voter string) {
	t.Helper()
	if _, err := module.Handler.AuthorizeVoterHandler(context.Background(), official, electionID, httptransport.AuthorizeVoterRequest{Voter: voter}); err != nil {
		t.Fatalf("authorize %s failed: %v", voter, err)
	}
}

func castVote(module electionregistry.Module, electionID int64, voter string, candidateID int64) (httptransport.CastVoteResponse, error) {
	return module.Handler.CastVoteHandler(context.Background(), voter, electionID, httptransport.CastVoteRequest{CandidateID: candidateID})
}

func TestCreateElectionReturnsActiveDetails(t *testing.T) {
	module, _ := newInitializedModule(t)
	created := createElection(t, module, "Election 2024", 3600)
	if created.ElectionID != 0 {
		t.Fatalf("expected first election id 0, got %d", created.ElectionID)
	}

	details, err := module.Handler.GetElectionHandler(context.Background(), 0)
	if err != nil {
		t.Fatalf("get election failed: %v", err)
	}
	if details.Name != "Election 2024" || !details.IsActive || !details.IsOpen {
		t.Fatalf("unexpected details: %+v", details)
	}
	if details.ElectionOfficial != official {
		t.Fatalf("expected official %s, got %s", official, details.ElectionOfficial)
	}
	if got := details.EndTime.Sub(details.StartTime); got != time.Hour {
		t.Fatalf("expected one hour window, got %s", got)
	}
}

func TestCandidatesKeepInsertionOrder(t *testing.T) {
	module, _ := newInitializedModule(t)
	createElection(t, module, "Election 2024", 3600)
	alice := addCandidate(t, module, 0, "Alice")
	bob := addCandidate(t, module, 0, "Bob")
	if alice.CandidateID != 0 || bob.CandidateID != 1 {
		t.Fatalf("expected ids 0 and 1, got %d and %d", alice.CandidateID, bob.CandidateID)
	}

	candidates, err := module.Handler.ListCandidatesHandler(context.Background(), 0)
	if err != nil {
		t.Fatalf("list candidates failed: %v", err)
	}
	if len(candidates.Items) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates.Items))
	}
	for i, name := range []string{"Alice", "Bob"} {
		item := candidates.Items[i]
		if item.Name != name || item.VoteCount != 0 || item.CandidateID != int64(i) {
			t.Fatalf("unexpected candidate %d: %+v", i, item)
		}
	}
}

func TestAuthorizedVoterCanVoteOnce(t *testing.T) {
	module, _ := newInitializedModule(t)
	createElection(t, module, "Election 2024", 3600)
	addCandidate(t, module, 0, "Alice")
	addCandidate(t, module, 0, "Bob")
	authorize(t, module, 0, "voter1")

	voter, err := module.Handler.GetVoterHandler(context.Background(), 0, "voter1")
	if err != nil {
		t.Fatalf("get voter failed: %v", err)
	}
	if !voter.IsAuthorized || voter.HasVoted {
		t.Fatalf("expected authorized voter who has not voted, got %+v", voter)
	}

	resp, err := castVote(module, 0, "voter1", 0)
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if resp.VoteCount != 1 {
		t.Fatalf("expected vote count 1, got %d", resp.VoteCount)
	}
	if resp.Reward == nil || resp.Reward.Amount != "10000000000000000000" || resp.Reward.Status != "pending" {
		t.Fatalf("expected pending reward entry, got %+v", resp.Reward)
	}

	voter, err = module.Handler.GetVoterHandler(context.Background(), 0, "voter1")
	if err != nil {
		t.Fatalf("get voter failed: %v", err)
	}
	if !voter.HasVoted {
		t.Fatalf("expected voter to be marked as voted")
	}

	for _, candidateID := range []int64{0, 1, 7} {
		if _, err := castVote(module, 0, "voter1", candidateID); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
			t.Fatalf("expected ErrAlreadyVoted for candidate %d, got %v", candidateID, err)
		}
	}
}

func TestVoteAfterExpiryIsRejected(t *testing.T) {
	module, now := newInitializedModule(t)
	createElection(t, module, "Flash", 1)
	addCandidate(t, module, 0, "Alice")
	authorize(t, module, 0, "voter1")

	*now = now.Add(2 * time.Second)

	_, err := castVote(module, 0, "voter1", 0)
	if !errors.Is(err, domainerrors.ErrElectionNotActive) {
		t.Fatalf("expected ErrElectionNotActive, got %v", err)
	}
	if err.Error() != "Election is not active" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	snapshot, _ := module.Store.Snapshot(0)
	if snapshot.Candidates[0].VoteCount != 0 || snapshot.Voters["voter1"].HasVoted {
		t.Fatalf("rejected vote must not change state: %+v", snapshot)
	}
}

func TestVoteAtExactEndTimeIsAccepted(t *testing.T) {
	module, now := newInitializedModule(t)
	createElection(t, module, "Edge", 60)
	addCandidate(t, module, 0, "Alice")
	authorize(t, module, 0, "voter1")

	*now = now.Add(60 * time.Second)
	if _, err := castVote(module, 0, "voter1", 0); err != nil {
		t.Fatalf("expected vote at end time to succeed, got %v", err)
	}
}

func TestUnauthorizedVoterIsRejected(t *testing.T) {
	module, _ := newInitializedModule(t)
	createElection(t, module, "Election 2024", 3600)
	addCandidate(t, module, 0, "Alice")

	_, err := castVote(module, 0, "voter2", 0)
	if !errors.Is(err, domainerrors.ErrVoterNotAuthorized) {
		t.Fatalf("expected ErrVoterNotAuthorized, got %v", err)
	}
	if err.Error() != "You are not authorized to vote" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestCastVoteErrorPrecedence(t *testing.T) {
	module, now := newInitializedModule(t)
	createElection(t, module, "Order", 10)
	addCandidate(t, module, 0, "Alice")
	authorize(t, module, 0, "voter1")

	if _, err := castVote(module, 0, "voter1", 5); !errors.Is(err, domainerrors.ErrCandidateNotFound) {
		t.Fatalf("expected ErrCandidateNotFound, got %v", err)
	}
	if _, err := castVote(module, 0, "voter1", -1); !errors.Is(err, domainerrors.ErrCandidateNotFound) {
		t.Fatalf("expected ErrCandidateNotFound for negative id, got %v", err)
	}
	if _, err := castVote(module, 9, "voter1", 0); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected ErrElectionNotFound, got %v", err)
	}

	// An unauthorized caller voting for a missing candidate sees the
	// authorization failure first.
	if _, err := castVote(module, 0, "stranger", 5); !errors.Is(err, domainerrors.ErrVoterNotAuthorized) {
		t.Fatalf("expected ErrVoterNotAuthorized, got %v", err)
	}

	*now = now.Add(time.Minute)
	if _, err := castVote(module, 0, "stranger", 5); !errors.Is(err, domainerrors.ErrElectionNotActive) {
		t.Fatalf("expected ErrElectionNotActive to win after expiry, got %v", err)
	}
}

func TestOfficialOnlyOperations(t *testing.T) {
	module, _ := newInitializedModule(t)
	createElection(t, module, "Guarded", 3600)

	ctx := context.Background()
	if _, err := module.Handler.AddCandidateHandler(ctx, "intruder", "", 0, httptransport.AddCandidateRequest{Name: "Mallory"}); !errors.Is(err, domainerrors.ErrNotElectionOfficial) {
		t.Fatalf("expected ErrNotElectionOfficial for add candidate, got %v", err)
	}
	if _, err := module.Handler.AuthorizeVoterHandler(ctx, "intruder", 0, httptransport.AuthorizeVoterRequest{Voter: "voter1"}); !errors.Is(err, domainerrors.ErrNotElectionOfficial) {
		t.Fatalf("expected ErrNotElectionOfficial for authorize, got %v", err)
	}
	if _, err := module.Handler.CloseElectionHandler(ctx, "intruder", 0); !errors.Is(err, domainerrors.ErrNotElectionOfficial) {
		t.Fatalf("expected ErrNotElectionOfficial for close, got %v", err)
	}
	if _, err := module.Handler.AddCandidateHandler(ctx, "intruder", "", 3, httptransport.AddCandidateRequest{Name: "Mallory"}); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected ErrElectionNotFound before the official check, got %v", err)
	}
	if _, err := module.Handler.AddCandidateHandler(ctx, official, "", 0, httptransport.AddCandidateRequest{Name: "  "}); !errors.Is(err, domainerrors.ErrInvalidCandidateName) {
		t.Fatalf("expected ErrInvalidCandidateName, got %v", err)
	}
}

func TestCreateElectionValidation(t *testing.T) {
	module, _ := newInitializedModule(t)
	ctx := context.Background()

	if _, err := module.Handler.CreateElectionHandler(ctx, official, "", httptransport.CreateElectionRequest{Name: "", DurationSeconds: 60}); !errors.Is(err, domainerrors.ErrInvalidElectionName) {
		t.Fatalf("expected ErrInvalidElectionName, got %v", err)
	}
	if _, err := module.Handler.CreateElectionHandler(ctx, official, "", httptransport.CreateElectionRequest{Name: "Zero", DurationSeconds: 0}); !errors.Is(err, domainerrors.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}

	// Rejected creations never reserve an id.
	created := createElection(t, module, "First", 60)
	if created.ElectionID != 0 {
		t.Fatalf("expected id 0 after rejected creations, got %d", created.ElectionID)
	}
}

func TestMutationsRequireInitializedRegistry(t *testing.T) {
	module := electionregistry.NewInMemoryModule(nil, nil)
	_, err := module.Handler.CreateElectionHandler(context.Background(), official, "", httptransport.CreateElectionRequest{
		Name:            "Early",
		DurationSeconds: 60,
	})
	if !errors.Is(err, domainerrors.ErrRegistryNotInitialized) {
		t.Fatalf("expected ErrRegistryNotInitialized, got %v", err)
	}
	if _, err := module.Handler.GetRegistryHandler(context.Background()); !errors.Is(err, domainerrors.ErrRegistryNotInitialized) {
		t.Fatalf("expected ErrRegistryNotInitialized on read, got %v", err)
	}
}

func TestInitializeTwiceFails(t *testing.T) {
	module, _ := newInitializedModule(t)
	_, err := module.Handler.InitializeRegistryHandler(context.Background(), "someone-else", httptransport.InitializeRegistryRequest{TokenReward: "1"})
	if !errors.Is(err, domainerrors.ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
	registry, err := module.Handler.GetRegistryHandler(context.Background())
	if err != nil {
		t.Fatalf("get registry failed: %v", err)
	}
	if registry.PlatformOwner != owner || registry.TokenReward != "10000000000000000000" {
		t.Fatalf("registry changed after rejected initialize: %+v", registry)
	}
}

func TestAuthorizeVoterIsIdempotent(t *testing.T) {
	module, _ := newInitializedModule(t)
	createElection(t, module, "Election 2024", 3600)

	first, err := module.Handler.AuthorizeVoterHandler(context.Background(), official, 0, httptransport.AuthorizeVoterRequest{Voter: "voter1"})
	if err != nil {
		t.Fatalf("first authorize failed: %v", err)
	}
	second, err := module.Handler.AuthorizeVoterHandler(context.Background(), official, 0, httptransport.AuthorizeVoterRequest{Voter: "voter1"})
	if err != nil {
		t.Fatalf("second authorize failed: %v", err)
	}
	if !first.Changed || second.Changed {
		t.Fatalf("expected only the first authorization to change state, got %v then %v", first.Changed, second.Changed)
	}
	if !second.IsAuthorized || second.HasVoted {
		t.Fatalf("unexpected voter state: %+v", second)
	}
}

func TestAuthorizeAfterVotingKeepsVotedFlag(t *testing.T) {
	module, _ := newInitializedModule(t)
	createElection(t, module, "Election 2024", 3600)
	addCandidate(t, module, 0, "Alice")
	authorize(t, module, 0, "voter1")
	if _, err := castVote(module, 0, "voter1", 0); err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	authorize(t, module, 0, "voter1")
	if _, err := castVote(module, 0, "voter1", 0); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("re-authorization must not reset the vote, got %v", err)
	}
}

func TestUnknownVoterReadsAsDefault(t *testing.T) {
	module, _ := newInitializedModule(t)
	createElection(t, module, "Election 2024", 3600)
	voter, err := module.Handler.GetVoterHandler(context.Background(), 0, "nobody")
	if err != nil {
		t.Fatalf("get voter failed: %v", err)
	}
	if voter.IsAuthorized || voter.HasVoted {
		t.Fatalf("expected default voter state, got %+v", voter)
	}
	if _, err := module.Handler.GetVoterHandler(context.Background(), 4, "nobody"); !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected ErrElectionNotFound, got %v", err)
	}
}

func TestCloseElectionStopsVoting(t *testing.T) {
	module, _ := newInitializedModule(t)
	createElection(t, module, "Closable", 3600)
	addCandidate(t, module, 0, "Alice")
	authorize(t, module, 0, "voter1")

	closed, err := module.Handler.CloseElectionHandler(context.Background(), official, 0)
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if closed.IsActive || closed.IsOpen || closed.ClosedAt == nil {
		t.Fatalf("expected closed election, got %+v", closed)
	}
	if _, err := module.Handler.CloseElectionHandler(context.Background(), official, 0); err != nil {
		t.Fatalf("second close must be a no-op, got %v", err)
	}
	if _, err := castVote(module, 0, "voter1", 0); !errors.Is(err, domainerrors.ErrElectionNotActive) {
		t.Fatalf("expected ErrElectionNotActive after close, got %v", err)
	}
	// Candidate registration has no time or activity check.
	addCandidate(t, module, 0, "Bob")
}

func TestCreateElectionReplaysIdempotencyKey(t *testing.T) {
	module, _ := newInitializedModule(t)
	ctx := context.Background()
	req := httptransport.CreateElectionRequest{Name: "Replayed", DurationSeconds: 60}

	first, err := module.Handler.CreateElectionHandler(ctx, official, "idem-1", req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second, err := module.Handler.CreateElectionHandler(ctx, official, "idem-1", req)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !second.Replayed || second.ElectionID != first.ElectionID {
		t.Fatalf("expected replay of election %d, got %+v", first.ElectionID, second)
	}
	req.Name = "Different"
	if _, err := module.Handler.CreateElectionHandler(ctx, official, "idem-1", req); !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
	}
	list, err := module.Handler.ListElectionsHandler(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("expected a single election, got %d", len(list.Items))
	}
}

func TestConcurrentCreatesWithSharedKeyYieldOneElection(t *testing.T) {
	module, _ := newInitializedModule(t)
	ctx := context.Background()
	req := httptransport.CreateElectionRequest{Name: "E", DurationSeconds: 60}

	const callers = 8
	for round := 0; round < 50; round++ {
		key := "shared-" + strconv.Itoa(round)
		start := make(chan struct{})
		ids := make(chan int64, callers)
		errs := make(chan error, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				resp, err := module.Handler.CreateElectionHandler(ctx, official, key, req)
				if err != nil {
					errs <- err
					return
				}
				ids <- resp.ElectionID
			}()
		}
		close(start)
		wg.Wait()
		close(ids)
		close(errs)

		for err := range errs {
			t.Fatalf("round %d: same-key create failed: %v", round, err)
		}
		want := int64(round)
		for id := range ids {
			if id != want {
				t.Fatalf("round %d: expected every caller to get election %d, got %d", round, want, id)
			}
		}
	}

	list, err := module.Handler.ListElectionsHandler(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list.Items) != 50 {
		t.Fatalf("expected one election per key, got %d", len(list.Items))
	}
}

func TestConcurrentCandidateAddsWithSharedKeyYieldOneCandidate(t *testing.T) {
	module, _ := newInitializedModule(t)
	ctx := context.Background()
	election := createElection(t, module, "Shared", 3600)

	const callers = 8
	start := make(chan struct{})
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			resp, err := module.Handler.AddCandidateHandler(ctx, official, "candidate-key", election.ElectionID, httptransport.AddCandidateRequest{Name: "Alice"})
			if err == nil && resp.CandidateID != 0 {
				err = errors.New("unexpected candidate id")
			}
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("same-key candidate add failed: %v", err)
		}
	}
	candidates, err := module.Handler.ListCandidatesHandler(ctx, election.ElectionID)
	if err != nil {
		t.Fatalf("list candidates failed: %v", err)
	}
	if len(candidates.Items) != 1 {
		t.Fatalf("expected a single candidate, got %d", len(candidates.Items))
	}
}

func TestConcurrentVotesKeepTallyConsistent(t *testing.T) {
	module, _ := newInitializedModule(t)
	createElection(t, module, "Busy", 3600)
	addCandidate(t, module, 0, "Alice")
	addCandidate(t, module, 0, "Bob")

	voters := make([]string, 40)
	for i := range voters {
		voters[i] = "voter-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		authorize(t, module, 0, voters[i])
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i, voter := range voters {
		// Every voter tries twice; only one attempt may land.
		for attempt := 0; attempt < 2; attempt++ {
			wg.Add(1)
			go func(voter string, candidateID int64) {
				defer wg.Done()
				if _, err := castVote(module, 0, voter, candidateID); err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				} else if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
					t.Errorf("unexpected vote error: %v", err)
				}
			}(voter, int64(i%2))
		}
	}
	wg.Wait()

	if accepted != len(voters) {
		t.Fatalf("expected %d accepted votes, got %d", len(voters), accepted)
	}
	snapshot, _ := module.Store.Snapshot(0)
	voted := 0
	for _, voter := range snapshot.Voters {
		if voter.HasVoted {
			voted++
		}
	}
	if snapshot.TotalVotes() != int64(voted) || voted != len(voters) {
		t.Fatalf("tally %d does not match voted flags %d", snapshot.TotalVotes(), voted)
	}

	rewards, err := module.Handler.ListRewardsHandler(context.Background(), 0)
	if err != nil {
		t.Fatalf("list rewards failed: %v", err)
	}
	if len(rewards.Items) != len(voters) {
		t.Fatalf("expected one reward per accepted vote, got %d", len(rewards.Items))
	}
}

func TestResultsRankTiesTogether(t *testing.T) {
	module, _ := newInitializedModule(t)
	createElection(t, module, "Ranked", 3600)
	addCandidate(t, module, 0, "Alice")
	addCandidate(t, module, 0, "Bob")
	addCandidate(t, module, 0, "Carol")
	for i, vote := range []int64{1, 2, 1, 2, 0} {
		voter := "voter" + string(rune('0'+i))
		authorize(t, module, 0, voter)
		if _, err := castVote(module, 0, voter, vote); err != nil {
			t.Fatalf("vote failed: %v", err)
		}
	}

	results, err := module.Handler.ResultsHandler(context.Background(), 0)
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if results.TotalVotes != 5 || len(results.Items) != 3 {
		t.Fatalf("unexpected results: %+v", results)
	}
	want := []struct {
		rank int
		name string
	}{{1, "Bob"}, {1, "Carol"}, {3, "Alice"}}
	for i, expected := range want {
		if results.Items[i].Rank != expected.rank || results.Items[i].Name != expected.name {
			t.Fatalf("standing %d: expected %+v, got %+v", i, expected, results.Items[i])
		}
	}
}

func TestRewardSettlementCreditsVoter(t *testing.T) {
	module, _ := newInitializedModule(t)
	createElection(t, module, "Paid", 3600)
	addCandidate(t, module, 0, "Alice")
	authorize(t, module, 0, "voter1")
	if _, err := castVote(module, 0, "voter1", 0); err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}

	report, err := module.RewardSettler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if report.Settled != 1 {
		t.Fatalf("expected 1 settled reward, got %+v", report)
	}
	if got := module.Store.Balance("voter1").String(); got != "10000000000000000000" {
		t.Fatalf("expected voter balance of 10 tokens, got %s", got)
	}

	rewards, err := module.Handler.ListRewardsHandler(context.Background(), 0)
	if err != nil {
		t.Fatalf("list rewards failed: %v", err)
	}
	if rewards.Items[0].Status != "settled" || rewards.Items[0].SettlementRef == "" {
		t.Fatalf("expected settled reward, got %+v", rewards.Items[0])
	}

	report, err = module.RewardSettler.RunOnce(context.Background())
	if err != nil || report.Settled != 0 {
		t.Fatalf("expected nothing left to settle, got %+v err=%v", report, err)
	}
}

func TestZeroRewardRecordsNoLedgerEntry(t *testing.T) {
	module := electionregistry.NewInMemoryModule(nil, nil)
	if _, err := module.Handler.InitializeRegistryHandler(context.Background(), owner, httptransport.InitializeRegistryRequest{TokenReward: "0"}); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	createElection(t, module, "Free", 3600)
	addCandidate(t, module, 0, "Alice")
	authorize(t, module, 0, "voter1")

	resp, err := castVote(module, 0, "voter1", 0)
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if resp.Reward != nil {
		t.Fatalf("expected no reward entry, got %+v", resp.Reward)
	}
}
