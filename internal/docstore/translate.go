package docstore

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"paytrack-service/internal/apperror"
	"paytrack-service/internal/pipeline"
)

// Translate converts typed pipeline stages into the driver's aggregation
// pipeline. Stage order is preserved exactly.
func Translate(stages []pipeline.Stage) (mongo.Pipeline, error) {
	native := make(mongo.Pipeline, 0, len(stages)+1)

	for _, stage := range stages {
		switch s := stage.(type) {
		case pipeline.Join:
			native = append(native, bson.D{{Key: "$lookup", Value: bson.D{
				{Key: "from", Value: s.From},
				{Key: "localField", Value: s.LocalField},
				{Key: "foreignField", Value: s.ForeignField},
				{Key: "as", Value: s.As},
			}}})
			if s.Unwind {
				native = append(native, bson.D{{Key: "$unwind", Value: "$" + s.As}})
			}

		case pipeline.Match:
			match, err := translateMatch(s)
			if err != nil {
				return nil, err
			}
			native = append(native, bson.D{{Key: "$match", Value: match}})

		case pipeline.ToDouble:
			native = append(native, bson.D{{Key: "$addFields", Value: bson.M{
				s.Field: bson.M{"$toDouble": "$" + s.Field},
			}}})

		case pipeline.Sort:
			direction := 1
			if s.Descending {
				direction = -1
			}
			sort := bson.D{{Key: s.Field, Value: direction}}
			if s.TieBreak != "" && s.TieBreak != s.Field {
				sort = append(sort, bson.E{Key: s.TieBreak, Value: 1})
			}
			native = append(native, bson.D{{Key: "$sort", Value: sort}})

		case pipeline.Project:
			projection := bson.D{}
			for _, f := range s.Fields {
				if f.From == "" || f.From == f.Name {
					projection = append(projection, bson.E{Key: f.Name, Value: 1})
				} else {
					projection = append(projection, bson.E{Key: f.Name, Value: "$" + f.From})
				}
			}
			native = append(native, bson.D{{Key: "$project", Value: projection}})

		case pipeline.Skip:
			native = append(native, bson.D{{Key: "$skip", Value: s.N}})

		case pipeline.Limit:
			native = append(native, bson.D{{Key: "$limit", Value: s.N}})

		case pipeline.Count:
			native = append(native, bson.D{{Key: "$count", Value: s.As}})

		default:
			return nil, apperror.Validation(fmt.Sprintf("unsupported pipeline stage %T", stage))
		}
	}

	return native, nil
}

// translateMatch combines predicates under $and so repeated fields or
// multiple $or groups never collide on a single document key.
func translateMatch(m pipeline.Match) (bson.M, error) {
	conditions := make(bson.A, 0, len(m.Predicates))

	for _, p := range m.Predicates {
		switch pred := p.(type) {
		case pipeline.Eq:
			conditions = append(conditions, bson.M{pred.Field: pred.Value})

		case pipeline.In:
			conditions = append(conditions, bson.M{pred.Field: bson.M{"$in": pred.Values}})

		case pipeline.EqFold:
			// Anchored case-insensitive regex per value: exact match, never
			// substring.
			or := make(bson.A, 0, len(pred.Values))
			for _, v := range pred.Values {
				or = append(or, bson.M{pred.Field: primitive.Regex{
					Pattern: "^" + regexp.QuoteMeta(v) + "$",
					Options: "i",
				}})
			}
			conditions = append(conditions, bson.M{"$or": or})

		case pipeline.TimeRange:
			bounds := bson.M{}
			if pred.Start != nil {
				bounds["$gte"] = *pred.Start
			}
			if pred.End != nil {
				bounds["$lte"] = *pred.End
			}
			if len(bounds) == 0 {
				continue
			}
			conditions = append(conditions, bson.M{pred.Field: bounds})

		default:
			return nil, apperror.Validation(fmt.Sprintf("unsupported match predicate %T", p))
		}
	}

	if len(conditions) == 0 {
		return bson.M{}, nil
	}
	return bson.M{"$and": conditions}, nil
}
