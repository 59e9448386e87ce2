package persistence

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

// compileBSON renders a predicate as a MongoDB filter document. The id column maps
// to _id.
func compileBSON(kind domain.Kind, p domain.Predicate) (bson.D, error) {
	if err := p.Validate(kind); err != nil {
		return nil, err
	}
	return renderBSON(p), nil
}

func renderBSON(p domain.Predicate) bson.D {
	switch p.Op {
	case domain.OpAll:
		return bson.D{}
	case domain.OpNone:
		return bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: bson.A{}}}}}
	case domain.OpEq:
		return bson.D{{Key: mongoField(p.Field), Value: p.Values[0]}}
	case domain.OpIn:
		values := make(bson.A, len(p.Values))
		copy(values, p.Values)
		return bson.D{{Key: mongoField(p.Field), Value: bson.D{{Key: "$in", Value: values}}}}
	case domain.OpAnd, domain.OpOr:
		op := "$and"
		if p.Op == domain.OpOr {
			op = "$or"
		}
		children := make(bson.A, len(p.Children))
		for i, c := range p.Children {
			children[i] = renderBSON(c)
		}
		return bson.D{{Key: op, Value: children}}
	default:
		return renderBSON(domain.None())
	}
}

func mongoField(name string) string {
	if name == "id" {
		return "_id"
	}
	return name
}
