package config

// RedisConfig is shared by the redis state backend and the asynq queue.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// BoltConfig locates the embedded state database.
type BoltConfig struct {
	Path string `yaml:"path"`
}

func (c *RedisConfig) applyEnv() {
	c.Addr = getEnv("REDIS_ADDR", c.Addr)
	c.Password = getEnv("REDIS_PASSWORD", c.Password)
	c.DB = getEnvAsInt("REDIS_DB", c.DB)
}
