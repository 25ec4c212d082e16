package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/kaguyact/majsoul-api/common/database"
	"github.com/kaguyact/majsoul-api/common/log"
	"github.com/kaguyact/majsoul-api/core/domain/entity"
	"github.com/kaguyact/majsoul-api/core/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const gameResultCollection = "game_results"

type GameResultRepository struct {
	mongo *database.MongoManager
}

func NewGameResultRepository(mongo *database.MongoManager) repository.GameResultRepository {
	return &GameResultRepository{mongo: mongo}
}

func (r *GameResultRepository) collection() *mongo.Collection {
	return r.mongo.Db.Collection(gameResultCollection)
}

// EnsureIndexes majsoul_id 唯一，比赛查询按开始时间排序
func (r *GameResultRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "majsoul_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "contest_majsoul_id", Value: 1}, {Key: "start_time", Value: -1}},
		},
	})
	if err != nil {
		log.Error("创建对局结果索引失败: %v", err)
		return repository.ErrMongodb
	}
	return nil
}

// SaveGameResult 按 majsoul_id 覆盖写入，保留第一次写入时的 _id
func (r *GameResultRepository) SaveGameResult(ctx context.Context, result *entity.GameResult) error {
	if result == nil || result.MajsoulID == "" {
		return repository.ErrInvalidGameResult
	}
	if result.ID.IsZero() {
		result.ID = primitive.NewObjectID()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	doc, err := bson.Marshal(result)
	if err != nil {
		log.Error("对局结果序列化失败: %v", err)
		return repository.ErrInvalidGameResult
	}
	var set bson.M
	if err := bson.Unmarshal(doc, &set); err != nil {
		return repository.ErrInvalidGameResult
	}
	id := set["_id"]
	delete(set, "_id")

	_, err = r.collection().UpdateOne(ctx,
		bson.M{"majsoul_id": result.MajsoulID},
		bson.M{"$set": set, "$setOnInsert": bson.M{"_id": id}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		log.Error("保存对局结果失败: majsoulID=%s, err=%v", result.MajsoulID, err)
		return repository.ErrMongodb
	}
	return nil
}

func (r *GameResultRepository) FindGameResult(ctx context.Context, majsoulID string) (*entity.GameResult, error) {
	var result entity.GameResult
	err := r.collection().FindOne(ctx, bson.M{"majsoul_id": majsoulID}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrGameResultNotFound
		}
		log.Error("查询对局结果失败: %v", err)
		return nil, repository.ErrMongodb
	}
	return &result, nil
}

// FindGameResultsByContest 查找比赛的对局结果（按开始时间倒序，分页）
func (r *GameResultRepository) FindGameResultsByContest(ctx context.Context, contestMajsoulID int, limit, offset int) ([]*entity.GameResult, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.collection().Find(ctx, bson.M{"contest_majsoul_id": contestMajsoulID}, opts)
	if err != nil {
		log.Error("查询比赛对局结果失败: %v", err)
		return nil, repository.ErrMongodb
	}
	defer cursor.Close(ctx)

	var results []*entity.GameResult
	if err := cursor.All(ctx, &results); err != nil {
		log.Error("解析对局结果失败: %v", err)
		return nil, repository.ErrMongodb
	}
	return results, nil
}

func (r *GameResultRepository) CountGameResultsByContest(ctx context.Context, contestMajsoulID int) (int64, error) {
	n, err := r.collection().CountDocuments(ctx, bson.M{"contest_majsoul_id": contestMajsoulID})
	if err != nil {
		log.Error("统计比赛对局数失败: %v", err)
		return 0, repository.ErrMongodb
	}
	return n, nil
}
