package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aryan0dhankhar/employeedir/internal/domain"
)

// EmployeeCollection is the collection holding employee documents
const EmployeeCollection = "employees"

type employeeDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	FirstName string             `bson:"firstName"`
	LastName  string             `bson:"lastName"`
	Position  string             `bson:"position"`
	Phone     string             `bson:"phone"`
	Email     string             `bson:"email"`
}

func (d employeeDocument) toDomain() *domain.Employee {
	return &domain.Employee{
		ID:        d.ID.Hex(),
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Position:  d.Position,
		Phone:     d.Phone,
		Email:     d.Email,
	}
}

// MongoEmployeeRepository implements domain.EmployeeRepository on a MongoDB collection
type MongoEmployeeRepository struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongoEmployeeRepository creates a repository over coll
func NewMongoEmployeeRepository(coll *mongo.Collection, logger *slog.Logger) *MongoEmployeeRepository {
	return &MongoEmployeeRepository{coll: coll, logger: logger}
}

// List returns all documents in natural order
func (r *MongoEmployeeRepository) List(ctx context.Context) ([]*domain.Employee, error) {
	cur, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to find employees: %w", err)
	}

	var docs []employeeDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode employees: %w", err)
	}

	employees := make([]*domain.Employee, 0, len(docs))
	for _, d := range docs {
		employees = append(employees, d.toDomain())
	}
	return employees, nil
}

// Insert lets the server mint an ObjectID and stores its hex form in e.ID
func (r *MongoEmployeeRepository) Insert(ctx context.Context, e *domain.Employee) error {
	doc := employeeDocument{
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Position:  e.Position,
		Phone:     e.Phone,
		Email:     e.Email,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert employee: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	e.ID = oid.Hex()
	return nil
}

// FindByIDAndUpdate applies $set with the present patch fields and returns the document after the update.
// Identifiers that are not valid ObjectIDs cannot exist and are reported as not found.
func (r *MongoEmployeeRepository) FindByIDAndUpdate(ctx context.Context, id string, patch domain.EmployeePatch) (*domain.Employee, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrEmployeeNotFound
	}
	filter := bson.M{"_id": oid}

	var res *mongo.SingleResult
	fields := patch.Fields()
	if len(fields) == 0 {
		res = r.coll.FindOne(ctx, filter)
	} else {
		set := bson.M{}
		for k, v := range fields {
			set[k] = v
		}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		res = r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts)
	}

	var doc employeeDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to update employee: %w", err)
	}
	return doc.toDomain(), nil
}

// Ping runs a cheap command against the collection's database
func (r *MongoEmployeeRepository) Ping(ctx context.Context) error {
	return r.coll.Database().RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}
