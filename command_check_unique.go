package verifyreset

import (
	"context"
	"slices"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// MsgValuesTaken is the message of the error returned by CheckUnique.
const MsgValuesTaken = "Values already taken."

// CheckUnique fails when another user already holds one of the non empty
// values in uniques. ownID, when set, is excluded so a user can keep its
// own values. The error metadata carries errors: {field: "Already taken."}
// and its message is empty when noErrMsg is set.
func (s *Service) CheckUnique(ctx context.Context, uniques map[string]any, ownID uuid.UUID, noErrMsg bool) error {
	if err := cancelled(ctx, "uniqueness check"); err != nil {
		return err
	}

	taken := map[string]any{}

	for field, value := range uniques {
		if isEmptyValue(value) {
			continue
		}

		col := NormalizeField(field)
		if !slices.Contains(s.cfg.UniqueFields, col) {
			return goerrors.New("field cannot be checked for uniqueness: "+field, goerrors.CategoryValidation).
				WithTextCode(TextCodeIdentityNotAllowed).
				WithCode(goerrors.CodeBadRequest)
		}

		users, err := s.findUsers(ctx, Query{col: value})
		if err != nil {
			return err
		}

		for _, u := range users {
			if ownID == uuid.Nil || u.ID != ownID {
				taken[field] = "Already taken."
				break
			}
		}
	}

	if len(taken) == 0 {
		return nil
	}

	msg := MsgValuesTaken
	if noErrMsg {
		msg = ""
	}

	return goerrors.New(msg, goerrors.CategoryConflict).
		WithTextCode(TextCodeValuesTaken).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"errors": taken})
}
