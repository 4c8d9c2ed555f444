package postgresadapter

import (
	"math/big"
	"time"

	"electionledger/contexts/governance/election-registry/domain/entities"
)

const registrySingletonID = 1

type registryModel struct {
	ID            int       `gorm:"column:id;primaryKey"`
	PlatformOwner string    `gorm:"column:platform_owner"`
	TokenReward   string    `gorm:"column:token_reward;type:text"`
	ElectionCount int64     `gorm:"column:election_count"`
	InitializedAt time.Time `gorm:"column:initialized_at"`
}

func (registryModel) TableName() string {
	return "election_registry"
}

func (m registryModel) toEntity() entities.Registry {
	reward, ok := new(big.Int).SetString(m.TokenReward, 10)
	if !ok {
		reward = new(big.Int)
	}
	return entities.Registry{
		PlatformOwner: m.PlatformOwner,
		TokenReward:   reward,
		InitializedAt: m.InitializedAt.UTC(),
	}
}

type electionModel struct {
	ElectionID       int64      `gorm:"column:election_id;primaryKey;autoIncrement:false"`
	Name             string     `gorm:"column:name"`
	ElectionOfficial string     `gorm:"column:election_official;index"`
	StartTime        time.Time  `gorm:"column:start_time"`
	EndTime          time.Time  `gorm:"column:end_time"`
	DurationSeconds  int64      `gorm:"column:duration_seconds"`
	IsActive         bool       `gorm:"column:is_active"`
	ClosedAt         *time.Time `gorm:"column:closed_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (electionModel) TableName() string {
	return "elections"
}

func electionModelFromEntity(election entities.Election, now time.Time) electionModel {
	return electionModel{
		ElectionID:       election.ElectionID,
		Name:             election.Name,
		ElectionOfficial: election.ElectionOfficial,
		StartTime:        election.StartTime.UTC(),
		EndTime:          election.EndTime.UTC(),
		DurationSeconds:  election.DurationSeconds,
		IsActive:         election.IsActive,
		ClosedAt:         normalizeOptionalTime(election.ClosedAt),
		UpdatedAt:        now.UTC(),
	}
}

func (m electionModel) toEntity(candidates []candidateModel, voters []voterModel) entities.Election {
	election := entities.Election{
		ElectionID:       m.ElectionID,
		Name:             m.Name,
		ElectionOfficial: m.ElectionOfficial,
		StartTime:        m.StartTime.UTC(),
		EndTime:          m.EndTime.UTC(),
		DurationSeconds:  m.DurationSeconds,
		IsActive:         m.IsActive,
		ClosedAt:         normalizeOptionalTime(m.ClosedAt),
		Candidates:       make([]entities.Candidate, 0, len(candidates)),
	}
	for _, row := range candidates {
		election.Candidates = append(election.Candidates, entities.Candidate{
			CandidateID: row.CandidateID,
			Name:        row.Name,
			VoteCount:   row.VoteCount,
		})
	}
	if voters != nil {
		election.Voters = make(map[string]entities.Voter, len(voters))
		for _, row := range voters {
			election.Voters[row.Principal] = row.toEntity()
		}
	}
	return election
}

type candidateModel struct {
	ElectionID  int64  `gorm:"column:election_id;primaryKey;autoIncrement:false"`
	CandidateID int64  `gorm:"column:candidate_id;primaryKey;autoIncrement:false"`
	Name        string `gorm:"column:name"`
	VoteCount   int64  `gorm:"column:vote_count"`
}

func (candidateModel) TableName() string {
	return "election_candidates"
}

type voterModel struct {
	ElectionID   int64      `gorm:"column:election_id;primaryKey;autoIncrement:false"`
	Principal    string     `gorm:"column:principal;primaryKey"`
	IsAuthorized bool       `gorm:"column:is_authorized"`
	HasVoted     bool       `gorm:"column:has_voted"`
	AuthorizedAt *time.Time `gorm:"column:authorized_at"`
	VotedAt      *time.Time `gorm:"column:voted_at"`
}

func (voterModel) TableName() string {
	return "election_voters"
}

func voterModelFromEntity(electionID int64, voter entities.Voter) voterModel {
	return voterModel{
		ElectionID:   electionID,
		Principal:    voter.Principal,
		IsAuthorized: voter.IsAuthorized,
		HasVoted:     voter.HasVoted,
		AuthorizedAt: optionalTime(voter.AuthorizedAt),
		VotedAt:      optionalTime(voter.VotedAt),
	}
}

func (m voterModel) toEntity() entities.Voter {
	voter := entities.Voter{
		Principal:    m.Principal,
		IsAuthorized: m.IsAuthorized,
		HasVoted:     m.HasVoted,
	}
	if m.AuthorizedAt != nil {
		voter.AuthorizedAt = m.AuthorizedAt.UTC()
	}
	if m.VotedAt != nil {
		voter.VotedAt = m.VotedAt.UTC()
	}
	return voter
}

type rewardModel struct {
	RewardID      string     `gorm:"column:reward_id;primaryKey"`
	ElectionID    int64      `gorm:"column:election_id;index"`
	Voter         string     `gorm:"column:voter"`
	CandidateID   int64      `gorm:"column:candidate_id"`
	Amount        string     `gorm:"column:amount;type:text"`
	Status        string     `gorm:"column:status;index"`
	Attempts      int        `gorm:"column:attempts"`
	LastError     string     `gorm:"column:last_error"`
	SettlementRef string     `gorm:"column:settlement_ref"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
	SettledAt     *time.Time `gorm:"column:settled_at"`
}

func (rewardModel) TableName() string {
	return "election_rewards"
}

func rewardModelFromEntity(entry entities.RewardEntry) rewardModel {
	amount := "0"
	if entry.Amount != nil {
		amount = entry.Amount.String()
	}
	return rewardModel{
		RewardID:      entry.RewardID,
		ElectionID:    entry.ElectionID,
		Voter:         entry.Voter,
		CandidateID:   entry.CandidateID,
		Amount:        amount,
		Status:        string(entry.Status),
		Attempts:      entry.Attempts,
		LastError:     entry.LastError,
		SettlementRef: entry.SettlementRef,
		CreatedAt:     entry.CreatedAt.UTC(),
		UpdatedAt:     entry.UpdatedAt.UTC(),
		SettledAt:     normalizeOptionalTime(entry.SettledAt),
	}
}

func (m rewardModel) toEntity() entities.RewardEntry {
	amount, ok := new(big.Int).SetString(m.Amount, 10)
	if !ok {
		amount = new(big.Int)
	}
	return entities.RewardEntry{
		RewardID:      m.RewardID,
		ElectionID:    m.ElectionID,
		Voter:         m.Voter,
		CandidateID:   m.CandidateID,
		Amount:        amount,
		Status:        entities.RewardStatus(m.Status),
		Attempts:      m.Attempts,
		LastError:     m.LastError,
		SettlementRef: m.SettlementRef,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
		SettledAt:     normalizeOptionalTime(m.SettledAt),
	}
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	ResourceID  string    `gorm:"column:resource_id"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "election_registry_idempotency"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "election_registry_outbox"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func optionalTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}
