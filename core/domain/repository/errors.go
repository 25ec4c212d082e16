package repository

import "errors"

var (
	ErrGameResultNotFound = errors.New("game result not found")
	ErrInvalidGameResult  = errors.New("invalid game result")

	ErrMongodb = errors.New("mongodb error happen")
	ErrRedis   = errors.New("redis error happen")
)
