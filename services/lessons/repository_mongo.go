package main

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	lessonsCollection = "lessons"
	ordersCollection  = "orders"
)

type lessonDocument struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Subject  string             `bson:"subject"`
	Location string             `bson:"location"`
	Price    float64            `bson:"price"`
	Space    int                `bson:"space"`
	Icon     string             `bson:"icon"`
}

func (d lessonDocument) toLesson() Lesson {
	return Lesson{
		ID:       d.ID.Hex(),
		Subject:  d.Subject,
		Location: d.Location,
		Price:    d.Price,
		Space:    d.Space,
		Icon:     d.Icon,
	}
}

// MongoLessonRepository implementa LessonRepository usando MongoDB
type MongoLessonRepository struct {
	collection *mongo.Collection
}

// NewMongoLessonRepository cria uma nova instância de MongoLessonRepository
func NewMongoLessonRepository(db *mongo.Database) *MongoLessonRepository {
	return &MongoLessonRepository{collection: db.Collection(lessonsCollection)}
}

func parseLessonID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidLessonID
	}
	return oid, nil
}

// GetLesson busca uma aula pelo ID
func (r *MongoLessonRepository) GetLesson(ctx context.Context, id string) (*Lesson, error) {
	oid, err := parseLessonID(id)
	if err != nil {
		return nil, err
	}

	var doc lessonDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrLessonNotFound
		}
		return nil, storeError("find lesson", err)
	}

	lesson := doc.toLesson()
	return &lesson, nil
}

// ListLessons retorna todas as aulas
func (r *MongoLessonRepository) ListLessons(ctx context.Context) ([]Lesson, error) {
	return r.find(ctx, bson.M{})
}

// FindLessons executa o filtro $or montado a partir dos critérios de busca
func (r *MongoLessonRepository) FindLessons(ctx context.Context, criteria SearchCriteria) ([]Lesson, error) {
	return r.find(ctx, searchFilter(criteria))
}

// searchFilter traduz os critérios para um filtro $or do MongoDB
func searchFilter(criteria SearchCriteria) bson.M {
	pattern := primitive.Regex{Pattern: criteria.Pattern, Options: "i"}

	conditions := bson.A{
		bson.M{"subject": bson.M{"$regex": pattern}},
		bson.M{"location": bson.M{"$regex": pattern}},
	}
	if criteria.Price != nil {
		conditions = append(conditions, bson.M{"price": *criteria.Price})
	}
	if criteria.Space != nil {
		conditions = append(conditions, bson.M{"space": *criteria.Space})
	}

	return bson.M{"$or": conditions}
}

func (r *MongoLessonRepository) find(ctx context.Context, filter bson.M) ([]Lesson, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, storeError("find lessons", err)
	}

	var docs []lessonDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeError("decode lessons", err)
	}

	lessons := make([]Lesson, 0, len(docs))
	for _, doc := range docs {
		lessons = append(lessons, doc.toLesson())
	}
	return lessons, nil
}

// ReserveSpaces decrementa as vagas com findOneAndUpdate condicional.
// O filtro space >= quantity e o $inc rodam como uma única operação no servidor.
func (r *MongoLessonRepository) ReserveSpaces(ctx context.Context, id string, quantity int) (*Lesson, error) {
	oid, err := parseLessonID(id)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"_id": oid, "space": bson.M{"$gte": quantity}}
	update := bson.M{"$inc": bson.M{"space": -quantity}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc lessonDocument
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.unmatchedReservation(ctx, oid)
		}
		return nil, storeError("reserve spaces", err)
	}

	lesson := doc.toLesson()
	return &lesson, nil
}

// unmatchedReservation tells a missing lesson apart from one without enough spaces.
func (r *MongoLessonRepository) unmatchedReservation(ctx context.Context, oid primitive.ObjectID) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return storeError("count lesson", err)
	}
	if n == 0 {
		return ErrLessonNotFound
	}
	return ErrInsufficientCapacity
}

// UpdateLesson aplica $set com os campos presentes no patch
func (r *MongoLessonRepository) UpdateLesson(ctx context.Context, id string, patch LessonPatch) (*Lesson, error) {
	oid, err := parseLessonID(id)
	if err != nil {
		return nil, err
	}

	set := patchFields(patch)
	if len(set) == 0 {
		return nil, ErrInvalidPatch
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc lessonDocument
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrLessonNotFound
		}
		return nil, storeError("update lesson", err)
	}

	lesson := doc.toLesson()
	return &lesson, nil
}

// patchFields lists the patch as a $set document keyed by stored field name.
func patchFields(patch LessonPatch) bson.M {
	set := bson.M{}
	if patch.Subject != nil {
		set["subject"] = *patch.Subject
	}
	if patch.Location != nil {
		set["location"] = *patch.Location
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Space != nil {
		set["space"] = *patch.Space
	}
	if patch.Icon != nil {
		set["icon"] = *patch.Icon
	}
	return set
}

func (r *MongoLessonRepository) CountLessons(ctx context.Context) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, storeError("count lessons", err)
	}
	return n, nil
}

func (r *MongoLessonRepository) InsertLessons(ctx context.Context, lessons []Lesson) error {
	if len(lessons) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(lessons))
	for _, l := range lessons {
		docs = append(docs, lessonDocument{
			Subject:  l.Subject,
			Location: l.Location,
			Price:    l.Price,
			Space:    l.Space,
			Icon:     l.Icon,
		})
	}

	_, err := r.collection.InsertMany(ctx, docs)
	return storeError("insert lessons", err)
}

type orderedLessonDocument struct {
	LessonID string `bson:"id"`
	Subject  string `bson:"subject"`
	Quantity int    `bson:"quantity"`
}

type orderDocument struct {
	ID        primitive.ObjectID      `bson:"_id,omitempty"`
	Name      string                  `bson:"name"`
	Phone     string                  `bson:"phone"`
	Lessons   []orderedLessonDocument `bson:"lessons"`
	CreatedAt time.Time               `bson:"createdAt"`
}

// MongoOrderRepository implementa OrderRepository usando MongoDB
type MongoOrderRepository struct {
	collection *mongo.Collection
}

// NewMongoOrderRepository cria uma nova instância de MongoOrderRepository
func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{collection: db.Collection(ordersCollection)}
}

// CreateOrder grava o pedido e devolve o _id gerado em order.ID
func (r *MongoOrderRepository) CreateOrder(ctx context.Context, order *Order) error {
	doc := orderDocument{
		ID:        primitive.NewObjectID(),
		Name:      order.Name,
		Phone:     order.Phone,
		Lessons:   make([]orderedLessonDocument, 0, len(order.Lessons)),
		CreatedAt: order.CreatedAt,
	}
	for _, l := range order.Lessons {
		doc.Lessons = append(doc.Lessons, orderedLessonDocument{
			LessonID: l.LessonID,
			Subject:  l.Subject,
			Quantity: l.Quantity,
		})
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return storeError("insert order", err)
	}

	order.ID = doc.ID.Hex()
	return nil
}

// connectMongo abre o cliente e confirma a conexão com um ping
func connectMongo(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.ConnectTimeout).
		SetRetryWrites(true).
		SetWriteConcern(writeconcern.Majority())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

var (
	_ LessonRepository = (*MongoLessonRepository)(nil)
	_ OrderRepository  = (*MongoOrderRepository)(nil)
)
