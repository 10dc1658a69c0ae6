package repositories

import (
	"context"
	"errors"

	"inventory-system/internal/entities"
	apperrors "inventory-system/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const userSelectFields = "id, fio, email, position, status_id"

// UserRepositoryInterface - сотрудники ведутся во внешней системе, здесь только чтение.
type UserRepositoryInterface interface {
	FindUserByID(ctx context.Context, id uint64) (*entities.User, error)
	// LockUserInTx сериализует операции над выдачами одного сотрудника.
	LockUserInTx(ctx context.Context, tx pgx.Tx, id uint64) error
}

type UserRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewUserRepository(storage *pgxpool.Pool, logger *zap.Logger) UserRepositoryInterface {
	return &UserRepository{storage: storage, logger: logger}
}

func (r *UserRepository) FindUserByID(ctx context.Context, id uint64) (*entities.User, error) {
	var u entities.User
	err := r.storage.QueryRow(ctx, "SELECT "+userSelectFields+" FROM users WHERE id = $1", id).
		Scan(&u.ID, &u.Fio, &u.Email, &u.Position, &u.StatusID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) LockUserInTx(ctx context.Context, tx pgx.Tx, id uint64) error {
	var lockedID uint64
	err := tx.QueryRow(ctx, "SELECT id FROM users WHERE id = $1 FOR UPDATE", id).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return err
	}
	return nil
}
