//
// Copyright 2019 Insolar Technologies GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package configuration

import (
	"bytes"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	APIConfigName     = "api"
	MigrateConfigName = "migrate"
	PayConfigName     = "pay"
	ConfigType        = "yaml"
)

func APILoad(log logrus.FieldLogger) *APIConfiguration {
	cfg := APIDefault()
	load(log, APIConfigName, "membership_api", cfg)
	printConfig(log, cleanAPISecrets(*cfg))
	return cfg
}

func MigrateLoad(log logrus.FieldLogger) *MigrateConfiguration {
	cfg := MigrateDefault()
	load(log, MigrateConfigName, "migrate", cfg)
	c := *cfg
	c.DB.URL = replacePassword(c.DB.URL)
	printConfig(log, c)
	return cfg
}

// PayLoad reads the CLI configuration. An explicit file path wins over the lookup dirs.
func PayLoad(log logrus.FieldLogger, path string) *PayConfiguration {
	cfg := PayDefault()
	if path != "" {
		loadFile(log, path, "membership_pay", cfg)
	} else {
		load(log, PayConfigName, "membership_pay", cfg)
	}
	c := *cfg
	c.Ledger.PrivateKey = mask(c.Ledger.PrivateKey)
	c.Audit.JWT = mask(c.Audit.JWT)
	printConfig(log, c)
	return cfg
}

// load fills actual in place. Defaults are fed to viper first, so that every key
// is known and can be overridden from the environment even without a file.
func load(log logrus.FieldLogger, name, envPrefix string, actual interface{}) {
	v := newViper(log, envPrefix, actual)
	v.SetConfigName(name)
	v.AddConfigPath(".")
	v.AddConfigPath(".artifacts")
	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Warnf("config file not found (file=%v). Default configuration is used", name+"."+ConfigType)
		} else {
			log.Error(errors.Wrapf(err, "failed to load config. Default configuration is used"))
		}
	}
	unmarshal(log, v, actual)
}

func loadFile(log logrus.FieldLogger, path, envPrefix string, actual interface{}) {
	v := newViper(log, envPrefix, actual)
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		log.Error(errors.Wrapf(err, "failed to load config %s. Default configuration is used", path))
	}
	unmarshal(log, v, actual)
}

func newViper(log logrus.FieldLogger, envPrefix string, defaults interface{}) *viper.Viper {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		log.Warn(errors.Wrap(err, "failed to read .env"))
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)
	v.SetConfigType(ConfigType)

	buf, err := yaml.Marshal(defaults)
	if err != nil {
		log.Error(errors.Wrap(err, "failed to marshal default config structure"))
		return v
	}
	if err := v.ReadConfig(bytes.NewReader(buf)); err != nil {
		log.Error(errors.Wrap(err, "failed to feed defaults to viper"))
	}
	return v
}

func unmarshal(log logrus.FieldLogger, v *viper.Viper, actual interface{}) {
	if err := v.Unmarshal(actual); err != nil {
		log.Error(errors.Wrapf(err, "failed to unmarshal readed from file config into configuration structure. Default configuration is used"))
	}
}

func printWorkingDir(log logrus.FieldLogger) {
	wd, _ := os.Getwd()
	log.Infof("Working dir: %s", wd)
}

func printConfig(log logrus.FieldLogger, c interface{}) {
	printWorkingDir(log)
	out, err := yaml.Marshal(c)
	if err != nil {
		log.Error(errors.Wrapf(err, "failed to marshal config structure"))
		return
	}
	log.Infof("Loaded configuration: \n %s \n", string(out))
}

func cleanAPISecrets(c APIConfiguration) APIConfiguration {
	c.DB.URL = replacePassword(c.DB.URL)
	return c
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "<masked>"
}

func replacePassword(url string) string {
	re := regexp.MustCompile(`^(?P<start>.*)(:(?P<pass>[^@\/:?]+)@)(?P<end>.*)$`)
	result := []byte{}
	if re.MatchString(url) {
		for _, submatches := range re.FindAllStringSubmatchIndex(url, -1) {
			result = re.ExpandString(result, `$start:<masked>@$end`, url, submatches)
		}
		return string(result)
	}
	return url
}
