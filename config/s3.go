package config

// S3Config holds the AWS settings shared by the S3 source and state backends.
type S3Config struct {
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"accessKey"`
	SecretKey    string `yaml:"secretKey"`
	UsePathStyle bool   `yaml:"usePathStyle"`
}

func (c *S3Config) applyEnv() {
	c.Region = getEnv("AWS_REGION", c.Region)
	c.Endpoint = getEnv("AWS_ENDPOINT", c.Endpoint)
	c.AccessKey = getEnv("AWS_ACCESS_KEY", c.AccessKey)
	c.SecretKey = getEnv("AWS_SECRET_KEY", c.SecretKey)
	c.UsePathStyle = getEnvAsBool("AWS_S3_PATH_STYLE", c.UsePathStyle)
}
