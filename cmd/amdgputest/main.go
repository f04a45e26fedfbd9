package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/emergingrobotics/go-amdgpu/pkg/cs"
	"github.com/emergingrobotics/go-amdgpu/pkg/device"
	"github.com/emergingrobotics/go-amdgpu/pkg/drm"
	"github.com/emergingrobotics/go-amdgpu/pkg/ipblock"
	"github.com/emergingrobotics/go-amdgpu/pkg/memory"
)

// Version information (set by ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "scan":
		scanDevices()
	case "info":
		deviceInfo(args)
	case "cs-basic":
		runBasic(args)
	case "cs-gang":
		runGang(args)
	case "debug":
		printDebugInfo()
	case "version":
		printVersion()
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("amdgpu command submission test tool")
	fmt.Println()
	fmt.Println("Usage: amdgputest <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  scan              Scan for amdgpu render nodes")
	fmt.Println("  info [device]     Show device information")
	fmt.Println("  cs-basic          Submit a single NOP IB and wait for its fence")
	fmt.Println("  cs-gang           Submit a compute+gfx gang and verify the results")
	fmt.Println("  debug             Print ioctl debug information")
	fmt.Println("  version           Print version information")
	fmt.Println("  help              Show this help")
}

func printVersion() {
	fmt.Printf("amdgputest version %s\n", Version)
	fmt.Printf("  Build time: %s\n", BuildTime)
}

func printDebugInfo() {
	fmt.Println("Ioctl Debug Information")
	fmt.Println()
	fmt.Println("Struct Sizes:")
	fmt.Printf("  CSChunk:      %d bytes\n", drm.SizeOfCSChunk)
	fmt.Printf("  CSChunkIB:    %d bytes\n", drm.SizeOfCSChunkIB)
	fmt.Printf("  CSChunkFence: %d bytes\n", drm.SizeOfCSChunkFence)
	fmt.Printf("  BoListIn:     %d bytes\n", drm.SizeOfBoListIn)
	fmt.Printf("  GemVA:        %d bytes\n", drm.SizeOfGemVA)
	fmt.Println()
	fmt.Println("Ioctl Command Codes:")
	fmt.Printf("  CS:          0x%08x\n", drm.GetIoctlCS())
	fmt.Printf("  CTX:         0x%08x\n", drm.GetIoctlCtx())
	fmt.Printf("  WAIT_FENCES: 0x%08x\n", drm.GetIoctlWaitFences())
	fmt.Printf("  GEM_CREATE:  0x%08x\n", drm.GetIoctlGemCreate())
	fmt.Printf("  INFO:        0x%08x\n", drm.GetIoctlInfo())
}

func scanDevices() {
	devices, err := drm.ScanDevices()
	if err != nil {
		fmt.Printf("Error scanning devices: %v\n", err)
		os.Exit(1)
	}

	if len(devices) == 0 {
		fmt.Println("No render nodes found")
		return
	}

	fmt.Printf("Found %d render node(s):\n", len(devices))
	for i, path := range devices {
		fmt.Printf("  [%d] %s\n", i, path)
	}
}

func openDevice(path string) *device.Device {
	var dev *device.Device
	var err error
	if path == "" {
		dev, err = device.OpenFirst()
	} else {
		dev, err = device.Open(path)
	}
	if err != nil {
		fmt.Printf("Error opening device: %v\n", err)
		os.Exit(1)
	}
	return dev
}

func deviceInfo(args []string) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	dev := openDevice(path)
	defer dev.Close()

	info := dev.Info()
	fmt.Printf("Device: %s\n", dev.Path())
	fmt.Printf("  Driver: amdgpu %s\n", dev.DriverVersion())
	fmt.Printf("  Device ID: 0x%04x\n", info.DeviceID)
	fmt.Printf("  Family: %d\n", info.Family)
	fmt.Printf("  VA range: 0x%x - 0x%x\n", info.VirtualAddressOffset, info.VirtualAddressMax)

	caps := dev.Capabilities()
	fmt.Println("  Engines:")
	for ip := drm.HWIPType(0); ip < drm.NumHWIPTypes; ip++ {
		if !caps[ip] {
			continue
		}
		fmt.Printf("    %s\n", ip)
	}
}

func setup(dev *device.Device) (*memory.Manager, *ipblock.Table) {
	mem := memory.NewManager(dev)
	blocks, err := ipblock.Setup(dev.Family())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return mem, blocks
}

func runBasic(args []string) {
	flags := flag.NewFlagSet("cs-basic", flag.ExitOnError)
	devPath := flags.StringP("device", "d", "", "render node path")
	ring := flags.Uint32("ring", 0, "ring index")
	verbose := flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.Parse(args)

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	dev := openDevice(*devPath)
	defer dev.Close()
	mem, _ := setup(dev)

	if err := cs.RunBasic(dev, mem, drm.HWIPGfx, *ring); err != nil {
		fmt.Printf("cs-basic failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("cs-basic: ok")
}

func runGang(args []string) {
	flags := flag.NewFlagSet("cs-gang", flag.ExitOnError)
	devPath := flags.StringP("device", "d", "", "render node path")
	ring := flags.Uint32("ring", 0, "ring index")
	vmid := flags.Bool("vmid", false, "reserve a VMID around the submission")
	verbose := flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.Parse(args)

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	dev := openDevice(*devPath)
	defer dev.Close()
	mem, blocks := setup(dev)

	gang := cs.NewGang(dev, mem, blocks)
	if err := gang.Run(cs.GangOptions{Ring: *ring, ReserveVMID: *vmid}); err != nil {
		fmt.Printf("cs-gang failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("cs-gang: ok")
}
