// 包 version：构建信息，发布时通过 -ldflags "-X sim-api/internal/version.Commit=..." 注入
package version

var (
	Version = "1.0"
	Commit  = "dev"
)
