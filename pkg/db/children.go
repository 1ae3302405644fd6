package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// ChildID derives a dependent row id from its root id and payload position.
func ChildID(rootID fmt.Stringer, position int) string {
	return fmt.Sprintf("%s-%d", rootID.String(), position)
}

// ReplaceChildren deletes every dependent row owned by parentID and inserts
// rows in order. It must run on the writer's transaction so no reader sees a
// partial set. table and parentColumn are trusted identifiers.
func ReplaceChildren[T any](ctx context.Context, tx *gorm.DB, table string, parentColumn string, parentID any, rows []T) error {
	if err := DeleteChildren(ctx, tx, table, parentColumn, parentID); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Table(table).Create(&rows).Error
}

// DeleteChildren removes dependents explicitly for stores that do not
// enforce ON DELETE CASCADE.
func DeleteChildren(ctx context.Context, tx *gorm.DB, table string, parentColumn string, parentID any) error {
	return tx.WithContext(ctx).Exec(
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, parentColumn),
		parentID,
	).Error
}
