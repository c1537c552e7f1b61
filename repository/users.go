package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	verifyreset "github.com/goliatone/go-verify-reset"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users implements verifyreset.UserRepository over bun.
type Users struct {
	repository.Repository[*verifyreset.User]
	db        *bun.DB
	paginated bool
	limit     int
}

var _ verifyreset.UserRepository = (*Users)(nil)

type UsersOption func(*Users)

// WithPagination makes Find return a *verifyreset.Page capped at limit rows.
func WithPagination(limit int) UsersOption {
	return func(u *Users) {
		u.paginated = true
		if limit > 0 {
			u.limit = limit
		}
	}
}

func NewUsers(db *bun.DB, opts ...UsersOption) *Users {
	repo := repository.NewRepository[*verifyreset.User](db, repository.ModelHandlers[*verifyreset.User]{
		NewRecord: func() *verifyreset.User { return &verifyreset.User{} },
		GetID: func(u *verifyreset.User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *verifyreset.User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	users := &Users{
		Repository: repo,
		db:         db,
		limit:      10,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(users)
		}
	}
	return users
}

// Find runs an equality query. Unknown columns are rejected.
func (u *Users) Find(ctx context.Context, query verifyreset.Query) (verifyreset.FindResult, error) {
	records := []*verifyreset.User{}
	q := u.db.NewSelect().Model(&records)

	model := &verifyreset.User{}
	for field, value := range query {
		col := verifyreset.NormalizeField(field)
		if _, ok := model.FieldValue(col); !ok {
			return nil, errors.New(fmt.Sprintf("unsupported query field %q", field), errors.CategoryValidation).
				WithCode(errors.CodeBadRequest)
		}
		q = q.Where("?TableAlias.? = ?", bun.Ident(col), value)
	}

	if !u.paginated {
		if err := q.Scan(ctx); err != nil && err != sql.ErrNoRows {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to find users")
		}
		return verifyreset.UserList(records), nil
	}

	total, err := q.Limit(u.limit).ScanAndCount(ctx)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to find users")
	}

	return &verifyreset.Page{
		Data:  records,
		Total: total,
		Limit: u.limit,
	}, nil
}

// Get loads a user by id.
func (u *Users) Get(ctx context.Context, id uuid.UUID) (*verifyreset.User, error) {
	user, err := u.Repository.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, verifyreset.ErrUserNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to get user")
	}
	return user, nil
}

// Patch applies p to the user inside a transaction, updating only the
// patched columns.
func (u *Users) Patch(ctx context.Context, id uuid.UUID, p verifyreset.Patch) (*verifyreset.User, error) {
	user := &verifyreset.User{}

	err := u.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(user).
			Where("?TableAlias.id = ?", id).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if err == sql.ErrNoRows {
				return verifyreset.ErrUserNotFound
			}
			return errors.Wrap(err, errors.CategoryInternal, "failed to load user for patch")
		}

		if err := user.Apply(p); err != nil {
			return errors.Wrap(err, errors.CategoryValidation, "invalid user patch").
				WithCode(errors.CodeBadRequest)
		}

		_, err = tx.NewUpdate().
			Model(user).
			Column(p.Columns()...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to patch user")
		}
		return nil
	})

	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to patch user")
	}

	return user, nil
}
