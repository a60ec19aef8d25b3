package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
)

const (
	usersCollection    = "users"
	countersCollection = "counters"
	userSequence       = "users"
)

// UserDirectory stores users in MongoDB. Integer IDs are drawn from a counter
// document so records keep the same shape as the SQL store; the unique index
// on email is what makes concurrent Create calls safe.
type UserDirectory struct {
	users    *mongo.Collection
	counters *mongo.Collection
}

func NewUserDirectory(db *mongo.Database) *UserDirectory {
	return &UserDirectory{
		users:    db.Collection(usersCollection),
		counters: db.Collection(countersCollection),
	}
}

type mongoUser struct {
	ID        int64     `bson:"_id"`
	Email     string    `bson:"email"`
	Password  string    `bson:"password"`
	FirstName string    `bson:"first_name"`
	LastName  string    `bson:"last_name"`
	CreatedAt time.Time `bson:"created_at"`
}

func (u mongoUser) toDomain() *domain.UserRecord {
	return &domain.UserRecord{
		ID:                  u.ID,
		Email:               u.Email,
		PasswordPlaceholder: u.Password,
		FirstName:           u.FirstName,
		LastName:            u.LastName,
		CreatedAt:           u.CreatedAt.UTC(),
	}
}

// EnsureIndexes creates the unique email index. It must run before the
// directory serves traffic.
func (r *UserDirectory) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_unique"),
	})
	if err != nil {
		return fmt.Errorf("ensure user indexes: %w", err)
	}
	return nil
}

func (r *UserDirectory) Create(ctx context.Context, in domain.NewUser) (*domain.UserRecord, error) {
	id, err := r.nextID(ctx)
	if err != nil {
		return nil, err
	}

	doc := mongoUser{
		ID:        id,
		Email:     in.Email,
		Password:  in.StoredPassword(),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateKey
		}
		return nil, storeErr("insert user", err)
	}
	return doc.toDomain(), nil
}

func (r *UserDirectory) FindByEmail(ctx context.Context, email string) (*domain.UserRecord, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserDirectory) FindByID(ctx context.Context, id int64) (*domain.UserRecord, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserDirectory) List(ctx context.Context, offset, limit int) ([]*domain.UserRecord, int64, error) {
	total, err := r.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, storeErr("count users", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cur, err := r.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, storeErr("list users", err)
	}
	defer cur.Close(ctx)

	items := make([]*domain.UserRecord, 0, limit)
	for cur.Next(ctx) {
		var mu mongoUser
		if err := cur.Decode(&mu); err != nil {
			return nil, 0, storeErr("decode user", err)
		}
		items = append(items, mu.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, 0, storeErr("list users", err)
	}
	return items, total, nil
}

func (r *UserDirectory) findOne(ctx context.Context, filter bson.M) (*domain.UserRecord, error) {
	var mu mongoUser
	if err := r.users.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storeErr("find user", err)
	}
	return mu.toDomain(), nil
}

// nextID atomically increments the users sequence. Gaps appear when an
// insert loses the email race; that matches SERIAL semantics.
func (r *UserDirectory) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": userSequence},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, storeErr("next user id", err)
	}
	return counter.Seq, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
