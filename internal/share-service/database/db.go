package database

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
	sqliteGo "github.com/mattn/go-sqlite3"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const CustomDriverName = "sqlite3_extended"

const DefaultFile = "share-service.db"

var (
	ErrRecordNotFound = gorm.ErrRecordNotFound
	ErrDuplicateCode  = errors.New("access code already taken")
	ErrDuplicateFile  = errors.New("file id already taken")
)

func init() {
	sql.Register(CustomDriverName,
		&sqliteGo.SQLiteDriver{
			ConnectHook: func(conn *sqliteGo.SQLiteConn) error {
				err := conn.RegisterFunc(
					"gen_random_uuid",
					func(arguments ...interface{}) (string, error) {
						u, err := uuid.NewRandom()
						if err != nil {
							return "", err
						}
						return u.String(), nil
					},
					true,
				)
				return err
			},
		},
	)
}

func NewDb(file string) (*gorm.DB, error) {
	conn, err := sql.Open(CustomDriverName, file)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Dialector{
		DriverName: CustomDriverName,
		DSN:        file,
		Conn:       conn,
	}, &gorm.Config{
		Logger:                   logger.Default.LogMode(logger.Warn),
		SkipDefaultTransaction:   true,
		DisableNestedTransaction: true,
		TranslateError:           true,
	})
	if err != nil {
		return nil, err
	}
	return db, db.AutoMigrate(&File{}, &Share{})
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqliteGo.Error
	return errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqliteGo.ErrConstraintUnique || sqliteErr.ExtendedCode == sqliteGo.ErrConstraintPrimaryKey)
}
