package utils

import (
	"context"
	"errors"
	"reflect"

	"bitbucket.org/mmsoftdev/shopbooks_backend/config"
)

// check if id exists, using ctx's shopkeeper_id in WHERE, return RecordNotFound Error
func ValidateResourceId[T any](ctx context.Context, shopkeeperId int, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, shopkeeperId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

// check if ALL id exists, using ctx's shopkeeper_id in WHERE, return RecordNotFound Error
func ValidateResourcesId[M any, ID comparable](ctx context.Context, shopkeeperId int, ids []ID) error {
	unqIds := UniqueSlice(ids)

	count, err := ResourceCountWhere[M](ctx, shopkeeperId, "id IN ?", unqIds)
	if err != nil {
		return err
	}
	if count != int64(len(unqIds)) {
		return ErrorRecordNotFound
	}

	return nil
}

func ValidateUnique[T any](ctx context.Context, shopkeeperId int, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, shopkeeperId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, shopkeeperId, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate " + column)
	}
	return nil
}

// count records, using WHERE shopkeeper_id = ? AND $condition
// shopkeeper_id can be zero for admin user
func ResourceCountWhere[T any](ctx context.Context, shopkeeperId int, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	if shopkeeperId != 0 {
		dbCtx.Where("shopkeeper_id = ?", shopkeeperId)
	}
	if condition != "" {
		dbCtx.Where(condition, value...)
	}
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
