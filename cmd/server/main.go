package main

import (
	"fmt"
	"os"
	"time"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// displayBanner exibe um banner de inicialização
func displayBanner() {
	banner := `
  ____       _           _        _                    
 |  _ \ ___ | |__   ___ | |_     / \   _ __ _ __ ___   
 | |_) / _ \| '_ \ / _ \| __|   / _ \ | '__| '_ ' _ \  
 |  _ < (_) | |_) | (_) | |_   / ___ \| |  | | | | | | 
 |_| \_\___/|_.__/ \___/ \__| /_/   \_\_|  |_| |_| |_|  v1.0
                                          CONTROL SERVER
 `
	fmt.Println(banner)
	fmt.Printf("Iniciando em %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
}
