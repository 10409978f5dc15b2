package config

type MinioConfig struct {
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Endpoint  string `yaml:"endpoint"`
	UseSSL    bool   `yaml:"useSSL"`
	Region    string `yaml:"region"`
}

func (c *MinioConfig) applyEnv() {
	c.AccessKey = getEnv("MINIO_ACCESS_KEY", c.AccessKey)
	c.SecretKey = getEnv("MINIO_SECRET_KEY", c.SecretKey)
	c.Endpoint = getEnv("MINIO_ENDPOINT", c.Endpoint)
	c.Region = getEnv("MINIO_REGION", c.Region)
	c.UseSSL = getEnvAsBool("MINIO_USE_SSL", c.UseSSL)
}
