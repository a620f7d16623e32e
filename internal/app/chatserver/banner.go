package chatserver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"tieba-chat/internal/config/schema"
	"tieba-chat/internal/version"
)

const (
	bannerWidth = 60
)

var (
	bannerCyan  = color.New(color.FgCyan).SprintFunc()
	bannerBold  = color.New(color.Bold).SprintFunc()
	bannerGreen = color.New(color.FgGreen).SprintFunc()
	bannerFaint = color.New(color.Faint).SprintFunc()
)

// IsTerminal 标准输出是否为终端，非终端（容器日志、重定向）时不显示横幅
func IsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// DisplayStartupBanner 显示启动信息横幅
func (s *Server) DisplayStartupBanner(w io.Writer, configPath string) {
	displayLogo(w)
	displayNodeInfo(w, s, configPath)
	displayCluster(w, s.config)
	fmt.Fprintln(w, bannerFaint("  "+strings.Repeat("━", bannerWidth)))
	fmt.Fprintln(w)
}

// displayLogo 显示 Logo
func displayLogo(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s  %s\n", bannerCyan("tieba-chat"), bannerFaint("Chat Node "+version.GetShortVersion()))
	fmt.Fprintln(w)
}

// displayNodeInfo 显示节点信息
func displayNodeInfo(w io.Writer, s *Server, configPath string) {
	fmt.Fprintln(w, bannerBold("  Node Information"))
	fmt.Fprintln(w, bannerFaint("  "+strings.Repeat("─", bannerWidth)))

	if configPath == "" {
		configPath = "(defaults)"
	}
	clientAddr := fmt.Sprintf("%s:%d", s.config.Node.Host, s.config.Node.Port)
	if addr := s.Addr(); addr != nil {
		clientAddr = addr.String()
	}
	rpcAddr := s.config.RPC.Listen
	if addr := s.RPCAddr(); addr != nil {
		rpcAddr = addr.String()
	}

	infoRows := []struct {
		label string
		value string
	}{
		{"Node", s.config.Node.Name},
		{"Config File", configPath},
		{"Start Time", time.Now().Format("2006-01-02 15:04:05")},
		{"Clients", clientAddr},
		{"RPC", rpcAddr},
		{"Log File", getLogFilePath(s.config.Log.File)},
	}
	for _, row := range infoRows {
		fmt.Fprintf(w, "  %-18s %s\n", bannerBold(row.label+":"), row.value)
	}
	fmt.Fprintln(w)
}

// displayCluster 显示共享存储与已知节点
func displayCluster(w io.Writer, cfg *schema.Root) {
	fmt.Fprintln(w, bannerBold("  Cluster"))
	fmt.Fprintln(w, bannerFaint("  "+strings.Repeat("─", bannerWidth)))

	fmt.Fprintf(w, "  %-18s %s\n", bannerBold("Run Mode:"), getRunMode(cfg))
	fmt.Fprintf(w, "  %-18s %s\n", bannerBold("Database:"), cfg.Database.Type)
	fmt.Fprintf(w, "  %-18s %s\n", bannerBold("Broker:"), cfg.Broker.Type)
	if len(cfg.Peers) == 0 {
		fmt.Fprintf(w, "  %-18s %s\n", bannerBold("Peers:"), bannerFaint("none configured"))
	}
	for _, p := range cfg.Peers {
		fmt.Fprintf(w, "    • %-14s %s\n", p.Name, bannerGreen(p.Address))
	}
	fmt.Fprintln(w)
}

// getLogFilePath 获取日志文件路径
func getLogFilePath(configuredPath string) string {
	if configuredPath == "" {
		return "stderr"
	}
	expandedPath, err := filepath.Abs(configuredPath)
	if err != nil {
		return configuredPath
	}
	return expandedPath
}

// getRunMode 获取运行模式
func getRunMode(cfg *schema.Root) string {
	if cfg.Storage.Type == schema.StorageTypeRedis {
		return fmt.Sprintf("Cluster (Redis %s)", cfg.Storage.Redis.Addr)
	}
	return "Standalone (Memory)"
}
