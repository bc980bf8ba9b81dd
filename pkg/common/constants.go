package common

const (
	RedisKeyQuote       = "market:quote:%s"
	RedisKeyCandles     = "market:candles:%s:%s:%d"
	RedisKeyMarketNews  = "market:news:%s"
	RedisKeyProfile     = "market:profile:%s"
	RedisKeyPriceTarget = "market:price_target:%s"
)
