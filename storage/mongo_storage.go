package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"civic-vote/log"
	"civic-vote/models"
)

const (
	colAdmins     = "admin_users"
	colCitizens   = "citizens"
	colVoters     = "voters"
	colCandidates = "candidates"
	colVotes      = "votes"
	colBiometric  = "biometric_logs"
	colCounters   = "counters"
)

type MongoInstance struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// MongoStore keeps one collection per record kind. Integer ids come from a
// counters collection so records look the same as in the other backends.
type MongoStore struct {
	mg  MongoInstance
	now func() time.Time
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, stop := context.WithTimeout(ctx, 30*time.Second)
	defer stop()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := &MongoStore{
		mg:  MongoInstance{Client: client, DB: client.Database(database)},
		now: time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info("connected to mongo", zap.String("database", database))
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	unique := map[string]string{
		colAdmins:   "user_id",
		colCitizens: "aadhaar_number",
		colVoters:   "voter_id",
		colVotes:    "vote_id",
	}
	for col, key := range unique {
		_, err := s.mg.DB.Collection(col).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: key, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("failed to create index %s.%s: %w", col, key, err)
		}
	}
	return nil
}

func (s *MongoStore) collection(name string) *mongo.Collection {
	return s.mg.DB.Collection(name)
}

func (s *MongoStore) next(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.collection(colCounters).FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: name}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: 1}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", name, err)
	}
	return counter.Seq, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%v: %w", err, ErrDuplicate)
	}
	return err
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.D) (*T, error) {
	out := new(T)
	if err := col.FindOne(ctx, filter).Decode(out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func findAll[T any](ctx context.Context, col *mongo.Collection, filter bson.D, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) GetAdminUser(ctx context.Context, userID string) (*models.AdminUser, error) {
	return findOne[models.AdminUser](ctx, s.collection(colAdmins), bson.D{{Key: "user_id", Value: userID}})
}

func (s *MongoStore) CreateAdminUser(ctx context.Context, user models.AdminUser) (*models.AdminUser, error) {
	id, err := s.next(ctx, seqAdmins)
	if err != nil {
		return nil, err
	}
	user.ID = id
	user.CreatedAt = s.now().UTC()
	if _, err := s.collection(colAdmins).InsertOne(ctx, user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *MongoStore) GetCitizen(ctx context.Context, aadhaar string) (*models.Citizen, error) {
	return findOne[models.Citizen](ctx, s.collection(colCitizens), bson.D{{Key: "aadhaar_number", Value: aadhaar}})
}

func newestFirstSort() bson.D {
	return bson.D{{Key: "created_at", Value: -1}, {Key: "id", Value: -1}}
}

func (s *MongoStore) ListCitizens(ctx context.Context, limit, offset int) ([]models.Citizen, error) {
	opts := options.Find().SetSort(newestFirstSort())
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return findAll[models.Citizen](ctx, s.collection(colCitizens), bson.D{}, opts)
}

func (s *MongoStore) CreateCitizen(ctx context.Context, citizen models.Citizen) (*models.Citizen, error) {
	id, err := s.next(ctx, seqCitizens)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	citizen.ID = id
	citizen.CreatedAt = now
	citizen.UpdatedAt = now
	citizen.VoterID, citizen.Constituency = "", ""
	if _, err := s.collection(colCitizens).InsertOne(ctx, citizen); err != nil {
		return nil, translate(err)
	}
	return &citizen, nil
}

func (s *MongoStore) UpdateCitizen(ctx context.Context, aadhaar string, update models.CitizenUpdate) (*models.Citizen, error) {
	citizen, err := s.GetCitizen(ctx, aadhaar)
	if err != nil {
		return nil, err
	}
	update.Apply(citizen)
	citizen.UpdatedAt = s.now().UTC()

	filter := bson.D{{Key: "aadhaar_number", Value: aadhaar}}
	res, err := s.collection(colCitizens).ReplaceOne(ctx, filter, citizen)
	if err != nil {
		return nil, translate(err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return citizen, nil
}

func (s *MongoStore) DeleteCitizen(ctx context.Context, aadhaar string) error {
	res, err := s.collection(colCitizens).DeleteOne(ctx, bson.D{{Key: "aadhaar_number", Value: aadhaar}})
	if err != nil {
		return err
	}
	if res.DeletedCount < 1 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SearchCitizens(ctx context.Context, query, district string) ([]models.Citizen, error) {
	filter := bson.D{}
	if query != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "full_name", Value: pattern}},
			bson.D{{Key: "aadhaar_number", Value: pattern}},
		}})
	}
	if district != "" {
		filter = append(filter, bson.E{Key: "district", Value: district})
	}
	return findAll[models.Citizen](ctx, s.collection(colCitizens), filter, options.Find().SetSort(newestFirstSort()))
}

func (s *MongoStore) GetVoter(ctx context.Context, voterID string) (*models.Voter, error) {
	return findOne[models.Voter](ctx, s.collection(colVoters), bson.D{{Key: "voter_id", Value: voterID}})
}

func (s *MongoStore) GetVoterByAadhaar(ctx context.Context, aadhaar string) (*models.Voter, error) {
	return findOne[models.Voter](ctx, s.collection(colVoters), bson.D{{Key: "aadhaar_number", Value: aadhaar}})
}

func (s *MongoStore) ListVoters(ctx context.Context) ([]models.Voter, error) {
	return findAll[models.Voter](ctx, s.collection(colVoters), bson.D{}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
}

func (s *MongoStore) CreateVoter(ctx context.Context, voter models.Voter) (*models.Voter, error) {
	id, err := s.next(ctx, seqVoters)
	if err != nil {
		return nil, err
	}
	voter.ID = id
	voter.CreatedAt = s.now().UTC()
	voter.HasVoted = false
	if _, err := s.collection(colVoters).InsertOne(ctx, voter); err != nil {
		return nil, translate(err)
	}
	return &voter, nil
}

func (s *MongoStore) UpdateVoter(ctx context.Context, voterID string, update models.VoterUpdate) (*models.Voter, error) {
	voter, err := s.GetVoter(ctx, voterID)
	if err != nil {
		return nil, err
	}
	update.Apply(voter)

	res, err := s.collection(colVoters).ReplaceOne(ctx, bson.D{{Key: "voter_id", Value: voterID}}, voter)
	if err != nil {
		return nil, translate(err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return voter, nil
}

func (s *MongoStore) DeleteVoter(ctx context.Context, voterID string) error {
	res, err := s.collection(colVoters).DeleteOne(ctx, bson.D{{Key: "voter_id", Value: voterID}})
	if err != nil {
		return err
	}
	if res.DeletedCount < 1 {
		return ErrNotFound
	}
	return nil
}

// MarkVoted relies on the filter on has_voted for an atomic check-and-set.
func (s *MongoStore) MarkVoted(ctx context.Context, voterID string) error {
	res, err := s.collection(colVoters).UpdateOne(ctx,
		bson.D{{Key: "voter_id", Value: voterID}, {Key: "has_voted", Value: false}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "has_voted", Value: true}}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := s.collection(colVoters).CountDocuments(ctx, bson.D{{Key: "voter_id", Value: voterID}})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrAlreadyVoted
}

func (s *MongoStore) ClearVoted(ctx context.Context, voterID string) error {
	res, err := s.collection(colVoters).UpdateOne(ctx,
		bson.D{{Key: "voter_id", Value: voterID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "has_voted", Value: false}}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	return findAll[models.Candidate](ctx, s.collection(colCandidates),
		bson.D{{Key: "is_active", Value: true}},
		options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
}

func (s *MongoStore) CandidatesByConstituency(ctx context.Context, constituency string) ([]models.Candidate, error) {
	return findAll[models.Candidate](ctx, s.collection(colCandidates),
		bson.D{{Key: "constituency", Value: constituency}, {Key: "is_active", Value: true}},
		options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
}

func (s *MongoStore) GetCandidate(ctx context.Context, id int) (*models.Candidate, error) {
	return findOne[models.Candidate](ctx, s.collection(colCandidates), bson.D{{Key: "id", Value: id}})
}

func (s *MongoStore) CreateCandidate(ctx context.Context, candidate models.Candidate) (*models.Candidate, error) {
	id, err := s.next(ctx, seqCandidates)
	if err != nil {
		return nil, err
	}
	candidate.ID = int(id)
	candidate.IsActive = true
	candidate.CreatedAt = s.now().UTC()
	if _, err := s.collection(colCandidates).InsertOne(ctx, candidate); err != nil {
		return nil, translate(err)
	}
	return &candidate, nil
}

func (s *MongoStore) UpdateCandidate(ctx context.Context, id int, update models.CandidateUpdate) (*models.Candidate, error) {
	candidate, err := s.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	update.Apply(candidate)

	res, err := s.collection(colCandidates).ReplaceOne(ctx, bson.D{{Key: "id", Value: id}}, candidate)
	if err != nil {
		return nil, translate(err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return candidate, nil
}

func (s *MongoStore) DeleteCandidate(ctx context.Context, id int) error {
	res, err := s.collection(colCandidates).UpdateOne(ctx,
		bson.D{{Key: "id", Value: id}, {Key: "is_active", Value: true}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "is_active", Value: false}}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SaveVote(ctx context.Context, vote models.VoteRecord) error {
	_, err := s.collection(colVotes).InsertOne(ctx, vote)
	return translate(err)
}

func (s *MongoStore) VotesByConstituency(ctx context.Context, constituency string) ([]models.VoteRecord, error) {
	return findAll[models.VoteRecord](ctx, s.collection(colVotes),
		bson.D{{Key: "constituency", Value: constituency}},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
}

func (s *MongoStore) VotingStats(ctx context.Context) (*VotingStats, error) {
	votes, err := s.collection(colVotes).CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	voters, err := s.collection(colVoters).CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	constituencies, err := s.collection(colCandidates).Distinct(ctx, "constituency", bson.D{})
	if err != nil {
		return nil, err
	}
	return &VotingStats{
		TotalVotes:     int(votes),
		EligibleVoters: int(voters),
		Constituencies: len(constituencies),
	}, nil
}

func (s *MongoStore) LogBiometric(ctx context.Context, entry models.BiometricLog) (*models.BiometricLog, error) {
	id, err := s.next(ctx, seqBiometric)
	if err != nil {
		return nil, err
	}
	entry.ID = id
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}
	if _, err := s.collection(colBiometric).InsertOne(ctx, entry); err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (s *MongoStore) BiometricLogs(ctx context.Context, aadhaar string) ([]models.BiometricLog, error) {
	return findAll[models.BiometricLog](ctx, s.collection(colBiometric),
		bson.D{{Key: "aadhaar_number", Value: aadhaar}},
		options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.mg.Client.Disconnect(ctx)
}
