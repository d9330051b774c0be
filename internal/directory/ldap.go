// Package directory 封装目录服务(Samba AD / LDAPS)：
// 口令校验与用户属性、组成员关系的提取。
// 组列表只在登录时取一次并烙进令牌，权限引擎不持有目录连接。
package directory

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"secure-vault/pkg/config"
	"secure-vault/pkg/logger"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// 登录后从目录取得的用户信息
type UserDetails struct {
	Username    string
	DisplayName string
	Email       string
	Groups      []string
	IsAdmin     bool
}

type Client struct {
	cfg config.LDAPConfig
}

func NewClient(cfg config.LDAPConfig) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) dial() (*ldap.Conn, error) {
	addr := fmt.Sprintf("ldaps://%s:%d", c.cfg.Server, c.cfg.Port)
	conn, err := ldap.DialURL(addr, ldap.DialWithTLSConfig(&tls.Config{
		InsecureSkipVerify: c.cfg.SkipVerify,
		ServerName:         c.cfg.Server,
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to directory: %w", err)
	}
	return conn, nil
}

// 用服务账号绑定后按用户名搜索条目
func (c *Client) searchUser(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	if err := conn.Bind(c.cfg.BindDN, c.cfg.BindPassword); err != nil {
		return nil, fmt.Errorf("directory service bind failed: %w", err)
	}

	filter := fmt.Sprintf(c.cfg.UserFilter, ldap.EscapeFilter(username))
	req := ldap.NewSearchRequest(
		c.cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, 10, false,
		filter,
		[]string{"sAMAccountName", "displayName", "mail", "memberOf"},
		nil,
	)

	res, err := conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("directory search failed: %w", err)
	}
	if len(res.Entries) == 0 {
		return nil, nil
	}
	return res.Entries[0], nil
}

// Authenticate 校验口令并返回用户详情。组名取 memberOf 各DN的首个CN。
func (c *Client) Authenticate(username, password string) (*UserDetails, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	entry, err := c.searchUser(conn, username)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		logger.L.Warn("directory user not found", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	// 用用户自己的DN重新绑定来校验口令
	if err := conn.Bind(entry.DN, password); err != nil {
		logger.L.Warn("directory bind rejected", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	groups := groupNames(entry.GetAttributeValues("memberOf"))

	return &UserDetails{
		Username:    username,
		DisplayName: entry.GetAttributeValue("displayName"),
		Email:       entry.GetAttributeValue("mail"),
		Groups:      groups,
		IsAdmin:     c.isAdmin(groups),
	}, nil
}

// 从 memberOf 的DN列表提取组的CN，例如
// "CN=Finance,OU=Groups,DC=example,DC=local" -> "Finance"
func groupNames(memberOf []string) []string {
	groups := make([]string, 0, len(memberOf))
	for _, dn := range memberOf {
		first := strings.SplitN(dn, ",", 2)[0]
		if !strings.HasPrefix(strings.ToUpper(first), "CN=") {
			continue
		}
		if name := first[len("CN="):]; name != "" {
			groups = append(groups, name)
		}
	}
	return groups
}

func (c *Client) isAdmin(groups []string) bool {
	for _, g := range groups {
		for _, admin := range c.cfg.AdminGroups {
			if g == admin {
				return true
			}
		}
	}
	return false
}
