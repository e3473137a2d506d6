package rdb

import (
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// ProviderOptions 固定的数据库连接配置，运行期间不可修改
type ProviderOptions struct {
	Driver         string        `cfg:"driver" def:"mysql" validate:"oneof=mysql sqlite3"`
	DSN            string        `cfg:"dsn"`
	Host           string        `cfg:"host" def:"localhost"`
	Port           string        `cfg:"port" def:"3306"`
	Database       string        `cfg:"database" validate:"required_without=DSN"`
	Username       string        `cfg:"username" def:"root"`
	Password       string        `cfg:"password"`
	Charset        string        `cfg:"charset" def:"utf8mb4"`
	ConnectTimeout time.Duration `cfg:"connectTimeout" def:"5s"`
}

// FormatDSN 生成驱动使用的 DSN，显式配置的 DSN 优先
func (o *ProviderOptions) FormatDSN() (string, error) {
	if o.DSN != "" {
		return o.DSN, nil
	}

	switch o.Driver {
	case "mysql":
		c := mysql.NewConfig()
		c.User = o.Username
		c.Passwd = o.Password
		c.Net = "tcp"
		c.Addr = net.JoinHostPort(o.Host, o.Port)
		c.DBName = o.Database
		c.ParseTime = true
		c.Loc = time.Local
		c.Timeout = o.ConnectTimeout
		if o.Charset != "" {
			c.Params = map[string]string{"charset": o.Charset}
		}
		return c.FormatDSN(), nil
	case "sqlite3":
		return o.Database, nil
	default:
		return "", errors.Errorf("unsupported driver: %s", o.Driver)
	}
}
